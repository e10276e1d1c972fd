// Package model holds the gorm table definitions for saved plans and usage counters.
package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// FormatVersion is stamped on every plan row written by this build.
// Version 1 rows came from the single-gun plan format.
const FormatVersion = 2

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Plan{},
	&Marker{},
	&PlacementStat{},
}

// Plan is one saved fire plan. Marker rows hang off it by PlanID.
type Plan struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime:false;index:idx_plan_created_at"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
	Format    uint8     `json:"format" gorm:"default:2"`

	Name          string          `json:"name" gorm:"size:200"`
	MapID         string          `json:"mapId" gorm:"size:127;index:idx_plan_map_id"`
	WindDirection sql.NullFloat64 `json:"windDirection"`
	WindStrength  int             `json:"windStrength" gorm:"default:0"`

	// JSON array of weapon IDs, one per gun marker in ordinal order
	WeaponIDs datatypes.JSON `json:"weaponIds"`
	// JSON array, one entry per gun: a target ordinal or null
	GunTargetIndices datatypes.JSON `json:"gunTargetIndices"`

	Markers []Marker `json:"markers" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:PlanID;"`
}

func (*Plan) TableName() string {
	return "plans"
}

// Marker is one gun, target or spotter of a plan, in world meters.
type Marker struct {
	ID      uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	PlanID  string `json:"planId" gorm:"size:36;index:idx_marker_plan_id"`
	Kind    string `json:"kind" gorm:"size:16"`
	Ordinal int    `json:"ordinal"` // position within its kind's list

	Position geom.Point `json:"position"`
	WeaponID string     `json:"weaponId" gorm:"size:64"` // guns only
}

func (*Marker) TableName() string {
	return "plan_markers"
}

// PlacementStat counts marker placements per kind and weapon.
type PlacementStat struct {
	Kind      string    `json:"kind" gorm:"primaryKey;size:16"`
	WeaponID  string    `json:"weaponId" gorm:"primaryKey;size:64"`
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*PlacementStat) TableName() string {
	return "placement_stats"
}
