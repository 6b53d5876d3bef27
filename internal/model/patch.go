package model

import (
	"time"

	"github.com/google/uuid"
)

// Per-kind defaults, matching what the web editor seeds new objects with.
const (
	DefaultStickyColor = "#ffbd59"
	DefaultObjectColor = "#3b82f6"
	DefaultAreaColor   = "#3b82f6"
	DefaultFontSize    = 16
	DefaultFontFamily  = "Arial, sans-serif"

	DefaultAreaWidth  = 300.0
	DefaultAreaHeight = 200.0

	// MinDimension lower bound for object/area width and height
	MinDimension = 1.0
)

// ObjectCreate caller-supplied fields for a new canvas object. Zero-valued
// width/height/color fall back to kind defaults.
type ObjectCreate struct {
	Kind       ObjectKind `json:"type"`
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
	Points     []Point    `json:"points,omitempty"`
}

// ObjectPatch partial update for an existing object; nil fields are left as-is
type ObjectPatch struct {
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Rotation   *float64 `json:"rotation,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Color      *string  `json:"color,omitempty"`
	FontSize   *int     `json:"font_size,omitempty"`
	FontFamily *string  `json:"font_family,omitempty"`
	ImageURL   *string  `json:"image_url,omitempty"`
	Points     []Point  `json:"points,omitempty"`
}

// AreaCreate caller-supplied fields for a new collaboration area
type AreaCreate struct {
	Name          string  `json:"name"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	Color         string  `json:"color"`
	AssignedUsers []int64 `json:"assigned_users,omitempty"`
}

// AreaPatch partial update for an existing area; nil fields are left as-is
type AreaPatch struct {
	Name          *string  `json:"name,omitempty"`
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
	Width         *float64 `json:"width,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	Color         *string  `json:"color,omitempty"`
	AssignedUsers []int64  `json:"assigned_users,omitempty"`
}

// defaultSize returns the editor's seed width/height for a kind
func defaultSize(kind ObjectKind) (w, h float64) {
	switch kind {
	case KindText:
		return 200, 100
	case KindLine:
		return 100, 2
	default:
		return 150, 150
	}
}

// NewObject builds a full object record from partial create data, assigning
// a fresh object_id and filling kind defaults for omitted fields.
func NewObject(canvasID, userID int64, create ObjectCreate) CanvasObject {
	now := time.Now().UTC()

	w, h := create.Width, create.Height
	dw, dh := defaultSize(create.Kind)
	if w == 0 {
		w = dw
	}
	if h == 0 {
		h = dh
	}
	if w < MinDimension {
		w = MinDimension
	}
	if h < MinDimension {
		h = MinDimension
	}

	color := create.Color
	if color == "" {
		if create.Kind == KindSticky {
			color = DefaultStickyColor
		} else {
			color = DefaultObjectColor
		}
	}

	obj := CanvasObject{
		ObjectID:   uuid.New().String(),
		CanvasID:   canvasID,
		Kind:       create.Kind,
		X:          create.X,
		Y:          create.Y,
		Width:      w,
		Height:     h,
		Rotation:   NormalizeRotation(create.Rotation),
		Content:    create.Content,
		Color:      color,
		FontSize:   create.FontSize,
		FontFamily: create.FontFamily,
		ImageURL:   create.ImageURL,
		Points:     create.Points,
		CreatedBy:  userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if create.Kind == KindText || create.Kind == KindSticky {
		if obj.FontSize == nil {
			size := DefaultFontSize
			obj.FontSize = &size
		}
		if obj.FontFamily == nil {
			family := DefaultFontFamily
			obj.FontFamily = &family
		}
	}

	return obj
}

// NewArea builds a full area record from partial create data
func NewArea(canvasID, userID int64, create AreaCreate) CollaborationArea {
	now := time.Now().UTC()

	w, h := create.Width, create.Height
	if w == 0 {
		w = DefaultAreaWidth
	}
	if h == 0 {
		h = DefaultAreaHeight
	}
	if w < MinDimension {
		w = MinDimension
	}
	if h < MinDimension {
		h = MinDimension
	}

	color := create.Color
	if color == "" {
		color = DefaultAreaColor
	}

	assigned := create.AssignedUsers
	if assigned == nil {
		assigned = []int64{}
	}

	return CollaborationArea{
		AreaID:        uuid.New().String(),
		CanvasID:      canvasID,
		Name:          create.Name,
		X:             create.X,
		Y:             create.Y,
		Width:         w,
		Height:        h,
		Color:         color,
		AssignedUsers: assigned,
		CreatedBy:     userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Apply shallow-merges the patch onto obj and refreshes updated_at
func (p ObjectPatch) Apply(obj *CanvasObject) {
	if p.X != nil {
		obj.X = *p.X
	}
	if p.Y != nil {
		obj.Y = *p.Y
	}
	if p.Width != nil {
		obj.Width = *p.Width
		if obj.Width < MinDimension {
			obj.Width = MinDimension
		}
	}
	if p.Height != nil {
		obj.Height = *p.Height
		if obj.Height < MinDimension {
			obj.Height = MinDimension
		}
	}
	if p.Rotation != nil {
		obj.Rotation = NormalizeRotation(*p.Rotation)
	}
	if p.Content != nil {
		obj.Content = p.Content
	}
	if p.Color != nil {
		obj.Color = *p.Color
	}
	if p.FontSize != nil {
		obj.FontSize = p.FontSize
	}
	if p.FontFamily != nil {
		obj.FontFamily = p.FontFamily
	}
	if p.ImageURL != nil {
		obj.ImageURL = p.ImageURL
	}
	if p.Points != nil {
		obj.Points = p.Points
	}
	obj.UpdatedAt = time.Now().UTC()
}

// Apply shallow-merges the patch onto area and refreshes updated_at
func (p AreaPatch) Apply(area *CollaborationArea) {
	if p.Name != nil {
		area.Name = *p.Name
	}
	if p.X != nil {
		area.X = *p.X
	}
	if p.Y != nil {
		area.Y = *p.Y
	}
	if p.Width != nil {
		area.Width = *p.Width
		if area.Width < MinDimension {
			area.Width = MinDimension
		}
	}
	if p.Height != nil {
		area.Height = *p.Height
		if area.Height < MinDimension {
			area.Height = MinDimension
		}
	}
	if p.Color != nil {
		area.Color = *p.Color
	}
	if p.AssignedUsers != nil {
		area.AssignedUsers = p.AssignedUsers
	}
	area.UpdatedAt = time.Now().UTC()
}
