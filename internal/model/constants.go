package model

// ObjectKind canvas object type
type ObjectKind string

const (
	KindSticky    ObjectKind = "sticky"
	KindRectangle ObjectKind = "rectangle"
	KindCircle    ObjectKind = "circle"
	KindLine      ObjectKind = "line"
	KindText      ObjectKind = "text"
	KindImage     ObjectKind = "image"
)

func (k ObjectKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known object kinds
func (k ObjectKind) Valid() bool {
	switch k {
	case KindSticky, KindRectangle, KindCircle, KindLine, KindText, KindImage:
		return true
	}
	return false
}
