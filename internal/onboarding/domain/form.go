package domain

// IDKind selects which identity document a detail form carries.
type IDKind string

const (
	IDPAN    IDKind = "pan"
	IDAadhar IDKind = "aadhar"
	IDCIN    IDKind = "cin"
)

// DetailForm holds the step-5 fields. Individual accounts use Name as the full name;
// corporate accounts use it as the contact name.
type DetailForm struct {
	Name         string
	Email        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Pincode      string

	CompanyName string
	GSTNumber   string

	// IDType picks one of PAN/Aadhar (individual) or PAN/CIN (corporate); the other is dropped.
	IDType       IDKind
	PANNumber    string
	AadharNumber string
	CINNumber    string
}

// Form field names, shared by validation errors and the request body.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldAddressLine1 = "address_line1"
	FieldAddressLine2 = "address_line2"
	FieldCity         = "city"
	FieldState        = "state"
	FieldPincode      = "pincode"
	FieldCompanyName  = "company_name"
	FieldGSTNumber    = "gst_number"
	FieldIDType       = "id_type"
	FieldPAN          = "pan_number"
	FieldAadhar       = "aadhar_number"
	FieldCIN          = "cin_number"
	FieldMobile       = "mobile"
	FieldOTP          = "otp"
	FieldRole         = "role"
	FieldAccountType  = "account_type"
)
