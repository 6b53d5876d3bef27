package model

import (
	"math"
	"time"
)

// Point a single vertex of a line object (canvas space)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Canvas one shared editable surface scoped to a project
type Canvas struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectID     int64     `gorm:"not null;uniqueIndex" json:"project_id"`
	Name          string    `gorm:"not null" json:"name"`
	Description   *string   `json:"description,omitempty"`
	ViewportX     float64   `gorm:"default:0" json:"viewport_x"`
	ViewportY     float64   `gorm:"default:0" json:"viewport_y"`
	ViewportScale float64   `gorm:"default:1" json:"viewport_scale"`
	CreatedBy     int64     `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Objects []CanvasObject      `gorm:"foreignKey:CanvasID" json:"objects,omitempty"`
	Areas   []CollaborationArea `gorm:"foreignKey:CanvasID" json:"areas,omitempty"`
}

func (Canvas) TableName() string {
	return "canvases"
}

// CanvasObject a single placeable shape/note/image/line/text element.
// ObjectID is the client-generated identity used for reconciliation and is
// distinct from the server-assigned row id.
type CanvasObject struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ObjectID   string     `gorm:"not null;uniqueIndex" json:"object_id"`
	CanvasID   int64      `gorm:"not null;index" json:"canvas_id"`
	Kind       ObjectKind `gorm:"column:type;not null" json:"type"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Rotation   float64    `json:"rotation"`
	Content    *string    `json:"content,omitempty"`
	Color      string     `json:"color"`
	FontSize   *int       `json:"font_size,omitempty"`
	FontFamily *string    `json:"font_family,omitempty"`
	ImageURL   *string    `json:"image_url,omitempty"`
	Points     []Point    `gorm:"type:jsonb;serializer:json" json:"points,omitempty"`
	CreatedBy  int64      `gorm:"not null" json:"created_by"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CanvasObject) TableName() string {
	return "canvas_objects"
}

// CollaborationArea a named rectangular zone used to assign editing
// responsibility. AssignedUsers is advisory: editing inside someone else's
// area is annotated in the UI, never blocked by the engine.
type CollaborationArea struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AreaID        string    `gorm:"not null;uniqueIndex" json:"area_id"`
	CanvasID      int64     `gorm:"not null;index" json:"canvas_id"`
	Name          string    `gorm:"not null" json:"name"`
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	Color         string    `json:"color"`
	AssignedUsers []int64   `gorm:"type:jsonb;serializer:json" json:"assigned_users"`
	CreatedBy     int64     `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CollaborationArea) TableName() string {
	return "collaboration_areas"
}

// Viewport per-client pan/zoom state. Never replicated to other clients;
// stored on the canvas row only for the owning user's convenience.
type Viewport struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// CanvasState the aggregate loaded at canvas open and written by autosave
type CanvasState struct {
	Objects  []CanvasObject      `json:"objects"`
	Areas    []CollaborationArea `json:"areas"`
	Viewport Viewport            `json:"viewport"`
}

// NormalizeRotation maps any rotation into [0, 360)
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}
