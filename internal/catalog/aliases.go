package catalog

// Field is a canonical Medicine attribute that a spreadsheet column can feed.
type Field string

const (
	FieldID                Field = "id"
	FieldName              Field = "name"
	FieldGenericName       Field = "genericName"
	FieldBrand             Field = "brand"
	FieldCategory          Field = "category"
	FieldManufacturer      Field = "manufacturer"
	FieldDescription       Field = "description"
	FieldDosage            Field = "dosage"
	FieldForm              Field = "form"
	FieldPrice             Field = "price"
	FieldStock             Field = "stock"
	FieldPrescription      Field = "prescription"
	FieldImageURL          Field = "imageUrl"
	FieldUses              Field = "uses"
	FieldSideEffects       Field = "sideEffects"
	FieldContraindications Field = "contraindications"
)

// FieldAliases lists the normalized header spellings accepted for one field,
// highest priority first.
type FieldAliases struct {
	Field   Field
	Aliases []string
}

// AliasTable is the ordered set of fields considered during reconciliation.
// Earlier fields claim headers before later ones.
type AliasTable []FieldAliases

// Fields returns the fields in declaration order.
func (t AliasTable) Fields() []Field {
	fields := make([]Field, len(t))
	for i, fa := range t {
		fields[i] = fa.Field
	}
	return fields
}

// DefaultAliases is the alias table for the medicine sheet.
// Aliases must already be in NormalizeHeader form.
var DefaultAliases = AliasTable{
	{Field: FieldID, Aliases: []string{"sl", "id", "serialnumber"}},
	{Field: FieldName, Aliases: []string{"productname", "medicinename", "name"}},
	{Field: FieldGenericName, Aliases: []string{"genericname", "composition"}},
	{Field: FieldBrand, Aliases: []string{"marketer", "brand"}},
	{Field: FieldCategory, Aliases: []string{"category", "group"}},
	{Field: FieldManufacturer, Aliases: []string{"manufacturer", "mfg"}},
	{Field: FieldDescription, Aliases: []string{"description"}},
	{Field: FieldDosage, Aliases: []string{"dosage"}},
	{Field: FieldForm, Aliases: []string{"form", "packtype"}},
	{Field: FieldPrice, Aliases: []string{"mrp", "rate", "price"}},
	{Field: FieldStock, Aliases: []string{"stock", "quantity", "qty"}},
	{Field: FieldPrescription, Aliases: []string{"prescription", "rx"}},
	{Field: FieldImageURL, Aliases: []string{"imageurl", "image", "img"}},
	{Field: FieldUses, Aliases: []string{"uses", "indications"}},
	{Field: FieldSideEffects, Aliases: []string{"sideeffects"}},
	{Field: FieldContraindications, Aliases: []string{"contraindications"}},
}
