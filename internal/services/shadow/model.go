package shadow

import (
	"fmt"

	"github.com/nerrad567/iot-device-sdk/internal/jsoncodec"
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// ShadowState is the desired and reported halves of a shadow update.
//
// A nil map is omitted from the document. Set DesiredIsNullable or
// ReportedIsNullable to send an explicit null instead, which clears that
// half of the shadow. Decoding sets the flag when the document carries null.
type ShadowState struct {
	Desired            map[string]any
	DesiredIsNullable  bool
	Reported           map[string]any
	ReportedIsNullable bool
}

func (s ShadowState) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, 2)
	putNullable(doc, "desired", s.Desired, s.DesiredIsNullable)
	putNullable(doc, "reported", s.Reported, s.ReportedIsNullable)
	return jsoncodec.Marshal(doc)
}

func (s *ShadowState) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := jsoncodec.Unmarshal(data, &doc); err != nil {
		return err
	}

	var err error
	if s.Desired, s.DesiredIsNullable, err = takeNullable(doc, "desired"); err != nil {
		return err
	}
	s.Reported, s.ReportedIsNullable, err = takeNullable(doc, "reported")
	return err
}

func putNullable(doc map[string]any, key string, value map[string]any, nullable bool) {
	switch {
	case value != nil:
		doc[key] = value
	case nullable:
		doc[key] = nil
	}
}

func takeNullable(doc map[string]any, key string) (map[string]any, bool, error) {
	raw, present := doc[key]
	if !present {
		return nil, false, nil
	}
	if raw == nil {
		return nil, true, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("shadow state %q: expected an object, got %T", key, raw)
	}
	return m, false, nil
}

// ShadowStateWithDelta is the state section of a full shadow document.
type ShadowStateWithDelta struct {
	Desired  map[string]any `json:"desired,omitempty"`
	Reported map[string]any `json:"reported,omitempty"`
	Delta    map[string]any `json:"delta,omitempty"`
}

// ShadowMetadata holds per-attribute update timestamps.
type ShadowMetadata struct {
	Desired  map[string]any `json:"desired,omitempty"`
	Reported map[string]any `json:"reported,omitempty"`
}

// ErrorResponse is the body of every rejected shadow request.
type ErrorResponse struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	Code        int                     `json:"code"`
	Message     string                  `json:"message,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// GetShadowRequest reads the classic shadow of a thing.
type GetShadowRequest struct {
	ThingName   string `json:"-" validate:"required,topicsafe"`
	ClientToken string `json:"clientToken,omitempty"`
}

// GetNamedShadowRequest reads a named shadow.
type GetNamedShadowRequest struct {
	ThingName   string `json:"-" validate:"required,topicsafe"`
	ShadowName  string `json:"-" validate:"required,topicsafe"`
	ClientToken string `json:"clientToken,omitempty"`
}

// GetShadowResponse is the full shadow document.
type GetShadowResponse struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	State       *ShadowStateWithDelta   `json:"state,omitempty"`
	Metadata    *ShadowMetadata         `json:"metadata,omitempty"`
	Version     *int64                  `json:"version,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// UpdateShadowRequest changes the classic shadow. Version, when set,
// makes the update conditional on the current shadow version.
type UpdateShadowRequest struct {
	ThingName   string       `json:"-" validate:"required,topicsafe"`
	ClientToken string       `json:"clientToken,omitempty"`
	State       *ShadowState `json:"state,omitempty"`
	Version     *int64       `json:"version,omitempty"`
}

// UpdateNamedShadowRequest changes a named shadow.
type UpdateNamedShadowRequest struct {
	ThingName   string       `json:"-" validate:"required,topicsafe"`
	ShadowName  string       `json:"-" validate:"required,topicsafe"`
	ClientToken string       `json:"clientToken,omitempty"`
	State       *ShadowState `json:"state,omitempty"`
	Version     *int64       `json:"version,omitempty"`
}

// UpdateShadowResponse echoes the accepted update.
type UpdateShadowResponse struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	State       *ShadowState            `json:"state,omitempty"`
	Metadata    *ShadowMetadata         `json:"metadata,omitempty"`
	Version     *int64                  `json:"version,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// DeleteShadowRequest deletes the classic shadow.
type DeleteShadowRequest struct {
	ThingName   string `json:"-" validate:"required,topicsafe"`
	ClientToken string `json:"clientToken,omitempty"`
	Version     *int64 `json:"version,omitempty"`
}

// DeleteNamedShadowRequest deletes a named shadow.
type DeleteNamedShadowRequest struct {
	ThingName   string `json:"-" validate:"required,topicsafe"`
	ShadowName  string `json:"-" validate:"required,topicsafe"`
	ClientToken string `json:"clientToken,omitempty"`
	Version     *int64 `json:"version,omitempty"`
}

// DeleteShadowResponse confirms a deletion.
type DeleteShadowResponse struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	Version     *int64                  `json:"version,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// ShadowDeltaUpdatedSubscriptionRequest selects the classic shadow delta stream.
type ShadowDeltaUpdatedSubscriptionRequest struct {
	ThingName string `json:"-" validate:"required,topicsafe"`
}

// NamedShadowDeltaUpdatedSubscriptionRequest selects a named shadow delta stream.
type NamedShadowDeltaUpdatedSubscriptionRequest struct {
	ThingName  string `json:"-" validate:"required,topicsafe"`
	ShadowName string `json:"-" validate:"required,topicsafe"`
}

// ShadowDeltaUpdatedEvent carries the desired attributes that differ
// from the reported ones.
type ShadowDeltaUpdatedEvent struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	State       map[string]any          `json:"state,omitempty"`
	Metadata    map[string]any          `json:"metadata,omitempty"`
	Version     *int64                  `json:"version,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// ShadowUpdatedSubscriptionRequest selects the classic shadow documents stream.
type ShadowUpdatedSubscriptionRequest struct {
	ThingName string `json:"-" validate:"required,topicsafe"`
}

// NamedShadowUpdatedSubscriptionRequest selects a named shadow documents stream.
type NamedShadowUpdatedSubscriptionRequest struct {
	ThingName  string `json:"-" validate:"required,topicsafe"`
	ShadowName string `json:"-" validate:"required,topicsafe"`
}

// ShadowUpdatedSnapshot is one side of a ShadowUpdatedEvent.
type ShadowUpdatedSnapshot struct {
	State    *ShadowState    `json:"state,omitempty"`
	Metadata *ShadowMetadata `json:"metadata,omitempty"`
	Version  *int64          `json:"version,omitempty"`
}

// ShadowUpdatedEvent carries the shadow before and after an accepted update.
type ShadowUpdatedEvent struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	Previous    *ShadowUpdatedSnapshot  `json:"previous,omitempty"`
	Current     *ShadowUpdatedSnapshot  `json:"current,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}
