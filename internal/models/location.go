package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubCounty is one node of the county tree, stored inside the Location
// JSON document rather than as its own table.
type SubCounty struct {
	Name     string   `json:"name"`
	Villages []string `json:"villages"`
}

// Location is the read-mostly county > subCounty > village directory.
type Location struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	County      string         `gorm:"uniqueIndex;not null" json:"county"`
	SubCounties datatypes.JSON `json:"subCounties"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return
}

// DecodeSubCounties unmarshals the JSON document column.
func (l *Location) DecodeSubCounties() ([]SubCounty, error) {
	if len(l.SubCounties) == 0 {
		return nil, nil
	}
	var out []SubCounty
	if err := json.Unmarshal(l.SubCounties, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeSubCounties marshals the tree back into the document column.
func (l *Location) EncodeSubCounties(subCounties []SubCounty) error {
	b, err := json.Marshal(subCounties)
	if err != nil {
		return err
	}
	l.SubCounties = datatypes.JSON(b)
	return nil
}
