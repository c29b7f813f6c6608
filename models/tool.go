// models/tool.go
package models

const (
	ToolTable     = "tools"
	LocationTable = "storage_locations"
)

// LocationTypes are the suggested storage location categories. Not enforced.
var LocationTypes = []string{"Warehouse", "Workshop", "Cabinet", "Box", "Rack"}

type StorageLocation struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Type    string `gorm:"size:50;not null" json:"type"`
	Name    string `gorm:"size:200;not null" json:"name"`
	Address string `gorm:"size:500" json:"address"`
}

func (StorageLocation) TableName() string { return LocationTable }

// Tool does not record who holds it; that is derived from the ledger.
type Tool struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	Article           string `gorm:"size:50;index;not null" json:"article"`
	Name              string `gorm:"size:100;not null" json:"name"`
	Description       string `gorm:"size:500" json:"description"`
	StorageLocationID uint   `gorm:"index;not null" json:"storageLocationId"`

	StorageLocation *StorageLocation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Tool) TableName() string { return ToolTable }
