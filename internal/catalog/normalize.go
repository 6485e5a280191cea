package catalog

import "strconv"

// Defaults applied when a row has no usable value for a field.
const (
	DefaultName         = "Unknown Medicine"
	DefaultGenericName  = "N/A"
	DefaultBrand        = "N/A"
	DefaultCategory     = "Uncategorized"
	DefaultManufacturer = "N/A"
)

// Normalize builds a Medicine from one row. It never fails: missing or
// malformed values fall back to defaults. index is the 1-based row position
// and only feeds the synthesized id.
//
// Duplicate ids are not resolved here; callers that need uniqueness must
// handle collisions themselves.
func Normalize(row Row, m HeaderMapping, index int) Medicine {
	values := extract(row, m)

	name := ToString(values[FieldName])
	brand := ToString(values[FieldBrand])
	stock := ToNumber(values[FieldStock])

	med := Medicine{
		ID:                medicineID(values, name, index),
		Name:              orDefault(name, DefaultName),
		GenericName:       orDefault(ToString(values[FieldGenericName]), DefaultGenericName),
		Brand:             orDefault(brand, DefaultBrand),
		Category:          orDefault(ToString(values[FieldCategory]), DefaultCategory),
		Manufacturer:      orDefault(ToString(values[FieldManufacturer]), orDefault(brand, DefaultManufacturer)),
		Description:       ToString(values[FieldDescription]),
		Dosage:            ToString(values[FieldDosage]),
		Form:              ToString(values[FieldForm]),
		Price:             ToNumber(values[FieldPrice]),
		Stock:             stock,
		Availability:      AvailabilityFor(stock),
		Prescription:      ToBool(values[FieldPrescription]),
		ImageURL:          ToString(values[FieldImageURL]),
		Uses:              ToList(values[FieldUses]),
		SideEffects:       ToList(values[FieldSideEffects]),
		Contraindications: ToList(values[FieldContraindications]),
		Raw:               row,
	}
	return med
}

// NormalizeAll normalizes rows in order using 1-based indices.
func NormalizeAll(rows []Row, m HeaderMapping) []Medicine {
	meds := make([]Medicine, len(rows))
	for i, row := range rows {
		meds[i] = Normalize(row, m, i+1)
	}
	return meds
}

// extract collects the mapped values of a row keyed by field.
// Headers the mapping does not know are left in the raw row only.
func extract(row Row, m HeaderMapping) map[Field]any {
	values := make(map[Field]any, m.Len())
	for header, v := range row {
		if f, ok := m.FieldFor(header); ok {
			values[f] = v
		}
	}
	return values
}

func medicineID(values map[Field]any, name string, index int) string {
	if id := ToString(values[FieldID]); id != "" {
		return id
	}
	if id := NormalizeHeader(name); id != "" {
		return id
	}
	return "med-" + strconv.Itoa(index)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
