package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

// ScanID identifica un escaneo OCR persistido en el historial
type ScanID string

func NewScanID(id string) ScanID { return ScanID(id) }
func (s ScanID) String() string  { return string(s) }
func (s ScanID) IsEmpty() bool   { return string(s) == "" }

// Role es el rol del usuario dentro del colegio
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleTeacher Role = "Teacher"
)

// Scopes devuelve los scopes que otorga cada rol
func (r Role) Scopes() []string {
	switch r {
	case RoleAdmin:
		return []string{"*"}
	case RoleTeacher:
		return []string{"ocr:*", "scans:read"}
	default:
		return nil
	}
}

func (r Role) IsValid() bool { return r == RoleAdmin || r == RoleTeacher }
