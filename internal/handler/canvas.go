// Package handler exposes the canvas REST surface and the WebSocket sync
// channel over fiber.
package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"canvas-backend/internal/auth"
	"canvas-backend/internal/model"
	"canvas-backend/internal/presence"
)

// CanvasHandler persistence endpoints for canvases, objects and areas
type CanvasHandler struct {
	db       *gorm.DB
	presence *presence.Manager
	log      *logrus.Logger
}

// NewCanvasHandler creates the REST handler
func NewCanvasHandler(db *gorm.DB, presenceMgr *presence.Manager, log *logrus.Logger) *CanvasHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CanvasHandler{db: db, presence: presenceMgr, log: log}
}

// GetByProject fetches a project's canvas, creating an empty one on first
// access so the editor never sees a missing canvas
func (h *CanvasHandler) GetByProject(c *fiber.Ctx) error {
	projectID, err := strconv.ParseInt(c.Params("projectId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project id"})
	}

	var canvas model.Canvas
	err = h.db.Preload("Objects").Preload("Areas").
		Where("project_id = ?", projectID).First(&canvas).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		canvas = model.Canvas{
			ProjectID:     projectID,
			Name:          "Untitled Canvas",
			ViewportScale: 1,
			CreatedBy:     auth.UserID(c),
		}
		if err := h.db.Create(&canvas).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create canvas"})
		}
		canvas.Objects = []model.CanvasObject{}
		canvas.Areas = []model.CollaborationArea{}
		return c.Status(fiber.StatusCreated).JSON(canvas)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch canvas"})
	}

	return c.JSON(canvas)
}

// Update changes canvas metadata (name, description)
func (h *CanvasHandler) Update(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var canvas model.Canvas
	if err := h.db.First(&canvas, canvasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "canvas not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch canvas"})
	}

	if req.Name != nil {
		canvas.Name = *req.Name
	}
	if req.Description != nil {
		canvas.Description = req.Description
	}
	if err := h.db.Save(&canvas).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update canvas"})
	}

	return c.JSON(canvas)
}

// Load returns the full state of a canvas for the editor to open
func (h *CanvasHandler) Load(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	var canvas model.Canvas
	if err := h.db.First(&canvas, canvasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "canvas not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch canvas"})
	}

	var objects []model.CanvasObject
	if err := h.db.Where("canvas_id = ?", canvasID).Order("id ASC").Find(&objects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch objects"})
	}

	var areas []model.CollaborationArea
	if err := h.db.Where("canvas_id = ?", canvasID).Order("id ASC").Find(&areas).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch areas"})
	}

	return c.JSON(model.CanvasState{
		Objects: objects,
		Areas:   areas,
		Viewport: model.Viewport{
			X:     canvas.ViewportX,
			Y:     canvas.ViewportY,
			Scale: canvas.ViewportScale,
		},
	})
}

// SaveRequest full-state write sent by explicit saves and autosave
type SaveRequest struct {
	Objects  []model.CanvasObject      `json:"objects"`
	Areas    []model.CollaborationArea `json:"areas"`
	Viewport *model.Viewport           `json:"viewport,omitempty"`
}

// Save replaces the persisted canvas state with the submitted snapshot.
// Objects and areas are upserted by their client-generated ids; rows absent
// from the snapshot are deleted, so the stored state always mirrors what
// the saving client saw.
func (h *CanvasHandler) Save(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	var req SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var canvas model.Canvas
	if err := h.db.First(&canvas, canvasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "canvas not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch canvas"})
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		objectIDs := make([]string, 0, len(req.Objects))
		for i := range req.Objects {
			req.Objects[i].ID = 0
			req.Objects[i].CanvasID = canvasID
			objectIDs = append(objectIDs, req.Objects[i].ObjectID)
		}
		if len(req.Objects) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "object_id"}},
				UpdateAll: true,
			}).Create(&req.Objects).Error; err != nil {
				return err
			}
		}
		if err := deleteAbsent(tx, &model.CanvasObject{}, canvasID, "object_id", objectIDs); err != nil {
			return err
		}

		areaIDs := make([]string, 0, len(req.Areas))
		for i := range req.Areas {
			req.Areas[i].ID = 0
			req.Areas[i].CanvasID = canvasID
			areaIDs = append(areaIDs, req.Areas[i].AreaID)
		}
		if len(req.Areas) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "area_id"}},
				UpdateAll: true,
			}).Create(&req.Areas).Error; err != nil {
				return err
			}
		}
		if err := deleteAbsent(tx, &model.CollaborationArea{}, canvasID, "area_id", areaIDs); err != nil {
			return err
		}

		if req.Viewport != nil {
			updates := map[string]any{
				"viewport_x":     req.Viewport.X,
				"viewport_y":     req.Viewport.Y,
				"viewport_scale": req.Viewport.Scale,
			}
			if err := tx.Model(&canvas).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.log.WithError(err).WithField("canvas_id", canvasID).Error("canvas save failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save canvas"})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"saved_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func deleteAbsent(tx *gorm.DB, m any, canvasID int64, idColumn string, keep []string) error {
	q := tx.Where("canvas_id = ?", canvasID)
	if len(keep) > 0 {
		q = q.Where(idColumn+" NOT IN ?", keep)
	}
	return q.Delete(m).Error
}

// CreateObject persists a single new object and returns the full record
func (h *CanvasHandler) CreateObject(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	var create model.ObjectCreate
	if err := c.BodyParser(&create); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if !create.Kind.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid object type"})
	}

	obj := model.NewObject(canvasID, auth.UserID(c), create)
	if err := h.db.Create(&obj).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create object"})
	}

	return c.Status(fiber.StatusCreated).JSON(obj)
}

// UpdateObject merges a partial update onto a stored object
func (h *CanvasHandler) UpdateObject(c *fiber.Ctx) error {
	objectID := c.Params("objectId")

	var patch model.ObjectPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var obj model.CanvasObject
	if err := h.db.Where("object_id = ?", objectID).First(&obj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "object not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch object"})
	}

	patch.Apply(&obj)
	if err := h.db.Save(&obj).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update object"})
	}

	return c.JSON(obj)
}

// DeleteObject removes an object; deleting an already-removed id succeeds
func (h *CanvasHandler) DeleteObject(c *fiber.Ctx) error {
	objectID := c.Params("objectId")

	if err := h.db.Where("object_id = ?", objectID).Delete(&model.CanvasObject{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete object"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// CreateArea persists a new collaboration area
func (h *CanvasHandler) CreateArea(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	var create model.AreaCreate
	if err := c.BodyParser(&create); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if create.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "area name is required"})
	}

	area := model.NewArea(canvasID, auth.UserID(c), create)
	if err := h.db.Create(&area).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create area"})
	}

	return c.Status(fiber.StatusCreated).JSON(area)
}

// UpdateArea merges a partial update onto a stored area
func (h *CanvasHandler) UpdateArea(c *fiber.Ctx) error {
	areaID := c.Params("areaId")

	var patch model.AreaPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	var area model.CollaborationArea
	if err := h.db.Where("area_id = ?", areaID).First(&area).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "area not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch area"})
	}

	patch.Apply(&area)
	if err := h.db.Save(&area).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update area"})
	}

	return c.JSON(area)
}

// DeleteArea removes an area; idempotent like object deletion
func (h *CanvasHandler) DeleteArea(c *fiber.Ctx) error {
	areaID := c.Params("areaId")

	if err := h.db.Where("area_id = ?", areaID).Delete(&model.CollaborationArea{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete area"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// AssignUser adds a user to an area's assignment list
func (h *CanvasHandler) AssignUser(c *fiber.Ctx) error {
	return h.changeAssignment(c, true)
}

// RemoveUser drops a user from an area's assignment list
func (h *CanvasHandler) RemoveUser(c *fiber.Ctx) error {
	return h.changeAssignment(c, false)
}

func (h *CanvasHandler) changeAssignment(c *fiber.Ctx, add bool) error {
	areaID := c.Params("areaId")

	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}

	var area model.CollaborationArea
	if err := h.db.Where("area_id = ?", areaID).First(&area).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "area not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch area"})
	}

	assigned := make([]int64, 0, len(area.AssignedUsers)+1)
	for _, id := range area.AssignedUsers {
		if id != userID {
			assigned = append(assigned, id)
		}
	}
	if add {
		assigned = append(assigned, userID)
	}
	area.AssignedUsers = assigned
	area.UpdatedAt = time.Now().UTC()

	if err := h.db.Save(&area).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update area"})
	}

	return c.JSON(area)
}

// ActiveUsers lists the live participants on a canvas from presence
func (h *CanvasHandler) ActiveUsers(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	if h.presence == nil {
		return c.JSON(fiber.Map{"users": []presence.Entry{}})
	}

	entries, err := h.presence.ActiveUsers(canvasID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch active users"})
	}

	return c.JSON(fiber.Map{"users": entries})
}

// Statistics summarizes a canvas: element counts per type, area count,
// live participants and last activity
func (h *CanvasHandler) Statistics(c *fiber.Ctx) error {
	canvasID, err := h.canvasID(c)
	if err != nil {
		return err
	}

	var canvas model.Canvas
	if err := h.db.First(&canvas, canvasID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "canvas not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch canvas"})
	}

	type kindCount struct {
		Kind  model.ObjectKind `gorm:"column:type"`
		Count int64
	}
	var counts []kindCount
	if err := h.db.Model(&model.CanvasObject{}).
		Select("type, count(*) as count").
		Where("canvas_id = ?", canvasID).
		Group("type").
		Scan(&counts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count objects"})
	}

	byType := make(map[string]int64, len(counts))
	var totalObjects int64
	for _, kc := range counts {
		byType[kc.Kind.String()] = kc.Count
		totalObjects += kc.Count
	}

	var areaCount int64
	if err := h.db.Model(&model.CollaborationArea{}).
		Where("canvas_id = ?", canvasID).Count(&areaCount).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count areas"})
	}

	var lastActivity *time.Time
	var latest model.CanvasObject
	err = h.db.Where("canvas_id = ?", canvasID).Order("updated_at DESC").First(&latest).Error
	if err == nil {
		lastActivity = &latest.UpdatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch activity"})
	}

	// Bounding box of all content, for fit-to-view
	var bounds struct {
		MinX *float64 `gorm:"column:min_x"`
		MinY *float64 `gorm:"column:min_y"`
		MaxX *float64 `gorm:"column:max_x"`
		MaxY *float64 `gorm:"column:max_y"`
	}
	if err := h.db.Model(&model.CanvasObject{}).
		Select("min(x) as min_x, min(y) as min_y, max(x + width) as max_x, max(y + height) as max_y").
		Where("canvas_id = ?", canvasID).
		Scan(&bounds).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute bounds"})
	}
	var boundingBox fiber.Map
	if bounds.MinX != nil {
		boundingBox = fiber.Map{
			"min_x": *bounds.MinX,
			"min_y": *bounds.MinY,
			"max_x": *bounds.MaxX,
			"max_y": *bounds.MaxY,
		}
	}

	activeCount := 0
	if h.presence != nil {
		if n, err := h.presence.ActiveCount(canvasID); err == nil {
			activeCount = n
		}
	}

	return c.JSON(fiber.Map{
		"canvas_id":       canvasID,
		"total_objects":   totalObjects,
		"objects_by_type": byType,
		"area_count":      areaCount,
		"active_users":    activeCount,
		"last_activity":   lastActivity,
		"bounding_box":    boundingBox,
		"updated_at":      canvas.UpdatedAt,
	})
}

func (h *CanvasHandler) canvasID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("canvasId"), 10, 64)
	if err != nil {
		return 0, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid canvas id"})
	}
	return id, nil
}
