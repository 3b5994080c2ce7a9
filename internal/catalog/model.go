package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"gorm.io/datatypes"
)

// MarkerRecord is one persisted marker definition. Position keeps the
// order in which markers are registered and drawn.
type MarkerRecord struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	SiteID     string         `json:"siteId" gorm:"size:64;uniqueIndex:idx_site_marker;index:idx_site_position,priority:1"`
	MarkerID   string         `json:"markerId" gorm:"size:64;uniqueIndex:idx_site_marker"`
	Position   int            `json:"position" gorm:"index:idx_site_position,priority:2"`
	Kind       string         `json:"kind" gorm:"size:32"`
	Label      string         `json:"label" gorm:"size:127"`
	Placement  datatypes.JSON `json:"placement"`
	ContentURL string         `json:"contentUrl" gorm:"size:512"`
	Size       datatypes.JSON `json:"size"`
}

// TableName overrides the default table name.
func (*MarkerRecord) TableName() string {
	return "markers"
}

// RecordFromDef builds the row for def at position pos within site.
func RecordFromDef(siteID string, pos int, def core.MarkerDef) (MarkerRecord, error) {
	placement, err := json.Marshal(def.Placement)
	if err != nil {
		return MarkerRecord{}, fmt.Errorf("marker %s: encoding placement: %w", def.ID, err)
	}
	size := datatypes.JSON("null")
	if def.Size != nil {
		b, err := json.Marshal(def.Size)
		if err != nil {
			return MarkerRecord{}, fmt.Errorf("marker %s: encoding size: %w", def.ID, err)
		}
		size = datatypes.JSON(b)
	}
	return MarkerRecord{
		SiteID:     siteID,
		MarkerID:   def.ID,
		Position:   pos,
		Kind:       string(def.Kind),
		Label:      def.Label,
		Placement:  datatypes.JSON(placement),
		ContentURL: def.ContentURL,
		Size:       size,
	}, nil
}

// Def converts the row back into a marker definition.
func (r MarkerRecord) Def() (core.MarkerDef, error) {
	def := core.MarkerDef{
		ID:         r.MarkerID,
		Kind:       core.MarkerKind(r.Kind),
		Label:      r.Label,
		ContentURL: r.ContentURL,
	}
	if err := json.Unmarshal(r.Placement, &def.Placement); err != nil {
		return core.MarkerDef{}, fmt.Errorf("marker %s: decoding placement: %w", r.MarkerID, err)
	}
	if len(r.Size) > 0 {
		if err := json.Unmarshal(r.Size, &def.Size); err != nil {
			return core.MarkerDef{}, fmt.Errorf("marker %s: decoding size: %w", r.MarkerID, err)
		}
	}
	return def, nil
}
