// Package asset defines the payload record stored on the ledger and its wire form.
package asset

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/satlaunch/payloadledger/internal/errors"
)

// NoLauncher marks a payload that no launcher has verified yet.
const NoLauncher = "---"

// CubesatSize is the form factor of a payload.
type CubesatSize string

const (
	Size1U  CubesatSize = "1U"
	Size2U  CubesatSize = "2U"
	Size3U  CubesatSize = "3U"
	Size6U  CubesatSize = "6U"
	Size12U CubesatSize = "12U"
)

var cubesatSizes = map[CubesatSize]struct{}{
	Size1U: {}, Size2U: {}, Size3U: {}, Size6U: {}, Size12U: {},
}

// Valid reports whether c is a supported form factor.
func (c CubesatSize) Valid() bool {
	_, ok := cubesatSizes[c]
	return ok
}

// Asset is a payload record. Field order and names are the persisted wire form.
type Asset struct {
	AssetID       string `json:"assetId"`
	Owner         string `json:"owner"`
	Launcher      string `json:"launcher"`
	FrequencyBand string `json:"frequencyBand"`
	CubesatSize   string `json:"cubesatSize"`
	Mass          string `json:"mass"`
	State         State  `json:"currentAssetState"`
	ModifiedBy    string `json:"modifiedBy"`
}

// Details are the payload fields supplied by the owner at booking and on modify.
type Details struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	FrequencyBand string `json:"frequencyBand"`
	CubesatSize   string `json:"cubesatSize"`
	Mass          string `json:"mass"`
}

// ParseDetails decodes a booking document such as
// {"id":"p1","owner":"alice","frequencyBand":"2GHz","cubesatSize":"2U","mass":"2kg"}.
// The document is checked against details.schema.json first.
func ParseDetails(raw []byte) (Details, error) {
	if err := validateDocument(raw); err != nil {
		return Details{}, err
	}
	var d Details
	if err := json.Unmarshal(raw, &d); err != nil {
		return Details{}, apperrors.Validation("payload details are not valid JSON: %v", err)
	}
	return d, nil
}

// Validate checks the fields required to book a payload.
func (d Details) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return apperrors.Validation("asset id is required as input")
	}
	if strings.TrimSpace(d.Owner) == "" {
		return apperrors.Validation("owner is required for asset %q", d.ID)
	}
	return d.ValidateFields()
}

// ValidateFields checks the mutable payload fields.
func (d Details) ValidateFields() error {
	if d.CubesatSize != "" && !CubesatSize(d.CubesatSize).Valid() {
		return apperrors.Validation("cubesatSize %q is not one of 1U, 2U, 3U, 6U, 12U", d.CubesatSize)
	}
	return nil
}

// New builds a freshly booked payload.
func New(d Details, createdBy string) *Asset {
	return &Asset{
		AssetID:       d.ID,
		Owner:         d.Owner,
		Launcher:      NoLauncher,
		FrequencyBand: d.FrequencyBand,
		CubesatSize:   d.CubesatSize,
		Mass:          d.Mass,
		State:         StateCreated,
		ModifiedBy:    createdBy,
	}
}

// Marshal encodes the asset in its wire form.
func (a *Asset) Marshal() ([]byte, error) {
	if !a.State.Valid() {
		return nil, fmt.Errorf("asset %q has invalid state %d", a.AssetID, int(a.State))
	}
	return json.Marshal(a)
}

// Unmarshal decodes bytes read from the ledger. Unknown fields are ignored;
// a missing id or an out-of-range state is a serialization error.
func Unmarshal(key string, data []byte) (*Asset, error) {
	var a Asset
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, apperrors.Serialization(key, err)
	}
	if a.AssetID == "" {
		return nil, apperrors.Serialization(key, fmt.Errorf("assetId is missing"))
	}
	if !a.State.Valid() {
		return nil, apperrors.Serialization(key, fmt.Errorf("currentAssetState is missing"))
	}
	return &a, nil
}
