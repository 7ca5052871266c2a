// Package adapter maps per-jurisdiction raw registry layouts onto the
// canonical vessel attribute set. One adapter exists per distinct file
// layout; everything downstream of staging only ever sees canonical
// attributes.
package adapter

import (
	"io"
)

// Canonical attribute names. Adapters emit these keys; the extractor and
// reconciler consume them. Values are always strings in the canonical
// document; typing happens at extraction.
const (
	FieldVesselName    = "vessel_name"
	FieldFlagCode      = "flag_code"
	FieldRegistration  = "registration_number"
	FieldIMO           = "imo"
	FieldUVI           = "uvi"
	FieldCallSign      = "call_sign"
	FieldMMSI          = "mmsi"
	FieldLicenseID     = "license_id"
	FieldVesselType    = "vessel_type"
	FieldGearType      = "gear_type"
	FieldLengthM       = "length_m"
	FieldTonnageGT     = "tonnage_gt"
	FieldEnginePowerKW = "engine_power_kw"
	FieldBuildYear     = "build_year"
	FieldOwnerName     = "owner_name"
	FieldHomePort      = "home_port"
	FieldExternalMark  = "external_marking"
)

// IdentifierFields lists every canonical attribute that counts as an
// external vessel identifier for cross-source confirmation.
var IdentifierFields = []string{
	FieldRegistration,
	FieldIMO,
	FieldUVI,
	FieldCallSign,
	FieldMMSI,
	FieldLicenseID,
}

// Adapter defines the capability set each registry layout must implement:
// parse raw rows, map to canonical attributes, and declare which columns
// jointly identify a physical vessel.
type Adapter interface {
	// Name returns the unique adapter identifier (e.g., "eufleet").
	Name() string

	// Columns returns the staging relation shape: one lowercase column per
	// raw field, loaded as TEXT with no coercion.
	Columns() []string

	// Parse reads the raw file and returns rows aligned with Columns().
	// Header rows (including any non-data banner row) are consumed here.
	Parse(r io.Reader) ([][]string, error)

	// Canonical maps one staged row to the canonical attribute set.
	// Empty values are stripped; the result never contains blank strings.
	Canonical(row []string) map[string]string

	// IdentityColumns names the two or three canonical attributes that
	// jointly identify a physical vessel in this layout. They drive the
	// deterministic row ordering key and the row content hash.
	IdentityColumns() []string

	// IdentifierPriority orders this layout's identifier attributes from
	// most to least preferred for the extracted record's primary identifier.
	IdentifierPriority() []string

	// CompletenessFields is the fixed attribute subset whose populated
	// fraction is the extracted record's completeness score.
	CompletenessFields() []string
}
