package shadow

import (
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// Operation names.
const (
	OpGetShadow         = "GetShadow"
	OpGetNamedShadow    = "GetNamedShadow"
	OpUpdateShadow      = "UpdateShadow"
	OpUpdateNamedShadow = "UpdateNamedShadow"
	OpDeleteShadow      = "DeleteShadow"
	OpDeleteNamedShadow = "DeleteNamedShadow"

	OpShadowDeltaUpdated      = "CreateShadowDeltaUpdatedStream"
	OpNamedShadowDeltaUpdated = "CreateNamedShadowDeltaUpdatedStream"
	OpShadowUpdated           = "CreateShadowUpdatedStream"
	OpNamedShadowUpdated      = "CreateNamedShadowUpdatedStream"
)

// shadowOperation builds an operation publishing to topic(req)+"/"+action.
func shadowOperation[Req, Resp any](name, action string, topic func(Req) string, setToken func(*Req, string)) *servicemodel.OperationModel {
	return servicemodel.NewOperation(servicemodel.OperationSpec[Req]{
		Name:           name,
		InputShapeName: name + "Request",
		PublishTopic: func(r Req) string {
			return topic(r) + "/" + action
		},
		ResponsePaths: func(r Req) []servicemodel.ResponsePath {
			return servicemodel.AcceptedRejected[Resp, ErrorResponse](topic(r)+"/"+action, tokenPath, name+" request rejected")
		},
		ApplyCorrelationToken: servicemodel.ClientToken(setToken),
	})
}

func shadowStream[Cfg, Evt any](name, shape, suffix string, topic func(Cfg) string) *servicemodel.StreamingOperationModel {
	return servicemodel.NewStreamingOperation[Cfg, Evt](servicemodel.StreamingSpec[Cfg]{
		Name:           name,
		InputShapeName: shape,
		Topic: func(c Cfg) string {
			return topic(c) + suffix
		},
	})
}

// NewServiceModel returns the shadow service model.
func NewServiceModel() *servicemodel.ServiceModel {
	return &servicemodel.ServiceModel{
		RequestResponseOperations: map[string]*servicemodel.OperationModel{
			OpGetShadow: shadowOperation[GetShadowRequest, GetShadowResponse](OpGetShadow, "get",
				func(r GetShadowRequest) string { return ClassicTopic(r.ThingName) },
				func(r *GetShadowRequest, t string) { r.ClientToken = t }),
			OpGetNamedShadow: shadowOperation[GetNamedShadowRequest, GetShadowResponse](OpGetNamedShadow, "get",
				func(r GetNamedShadowRequest) string { return NamedTopic(r.ThingName, r.ShadowName) },
				func(r *GetNamedShadowRequest, t string) { r.ClientToken = t }),
			OpUpdateShadow: shadowOperation[UpdateShadowRequest, UpdateShadowResponse](OpUpdateShadow, "update",
				func(r UpdateShadowRequest) string { return ClassicTopic(r.ThingName) },
				func(r *UpdateShadowRequest, t string) { r.ClientToken = t }),
			OpUpdateNamedShadow: shadowOperation[UpdateNamedShadowRequest, UpdateShadowResponse](OpUpdateNamedShadow, "update",
				func(r UpdateNamedShadowRequest) string { return NamedTopic(r.ThingName, r.ShadowName) },
				func(r *UpdateNamedShadowRequest, t string) { r.ClientToken = t }),
			OpDeleteShadow: shadowOperation[DeleteShadowRequest, DeleteShadowResponse](OpDeleteShadow, "delete",
				func(r DeleteShadowRequest) string { return ClassicTopic(r.ThingName) },
				func(r *DeleteShadowRequest, t string) { r.ClientToken = t }),
			OpDeleteNamedShadow: shadowOperation[DeleteNamedShadowRequest, DeleteShadowResponse](OpDeleteNamedShadow, "delete",
				func(r DeleteNamedShadowRequest) string { return NamedTopic(r.ThingName, r.ShadowName) },
				func(r *DeleteNamedShadowRequest, t string) { r.ClientToken = t }),
		},
		StreamingOperations: map[string]*servicemodel.StreamingOperationModel{
			OpShadowDeltaUpdated: shadowStream[ShadowDeltaUpdatedSubscriptionRequest, ShadowDeltaUpdatedEvent](
				OpShadowDeltaUpdated, "ShadowDeltaUpdatedSubscriptionRequest", "/update/delta",
				func(c ShadowDeltaUpdatedSubscriptionRequest) string { return ClassicTopic(c.ThingName) }),
			OpNamedShadowDeltaUpdated: shadowStream[NamedShadowDeltaUpdatedSubscriptionRequest, ShadowDeltaUpdatedEvent](
				OpNamedShadowDeltaUpdated, "NamedShadowDeltaUpdatedSubscriptionRequest", "/update/delta",
				func(c NamedShadowDeltaUpdatedSubscriptionRequest) string { return NamedTopic(c.ThingName, c.ShadowName) }),
			OpShadowUpdated: shadowStream[ShadowUpdatedSubscriptionRequest, ShadowUpdatedEvent](
				OpShadowUpdated, "ShadowUpdatedSubscriptionRequest", "/update/documents",
				func(c ShadowUpdatedSubscriptionRequest) string { return ClassicTopic(c.ThingName) }),
			OpNamedShadowUpdated: shadowStream[NamedShadowUpdatedSubscriptionRequest, ShadowUpdatedEvent](
				OpNamedShadowUpdated, "NamedShadowUpdatedSubscriptionRequest", "/update/documents",
				func(c NamedShadowUpdatedSubscriptionRequest) string { return NamedTopic(c.ThingName, c.ShadowName) }),
		},
		Shapes: map[string]servicemodel.ShapeValidator{
			"GetShadowRequest":         servicemodel.StructValidator[GetShadowRequest]("GetShadowRequest"),
			"GetNamedShadowRequest":    servicemodel.StructValidator[GetNamedShadowRequest]("GetNamedShadowRequest"),
			"UpdateShadowRequest":      servicemodel.StructValidator[UpdateShadowRequest]("UpdateShadowRequest"),
			"UpdateNamedShadowRequest": servicemodel.StructValidator[UpdateNamedShadowRequest]("UpdateNamedShadowRequest"),
			"DeleteShadowRequest":      servicemodel.StructValidator[DeleteShadowRequest]("DeleteShadowRequest"),
			"DeleteNamedShadowRequest": servicemodel.StructValidator[DeleteNamedShadowRequest]("DeleteNamedShadowRequest"),

			"ShadowDeltaUpdatedSubscriptionRequest":      servicemodel.StructValidator[ShadowDeltaUpdatedSubscriptionRequest]("ShadowDeltaUpdatedSubscriptionRequest"),
			"NamedShadowDeltaUpdatedSubscriptionRequest": servicemodel.StructValidator[NamedShadowDeltaUpdatedSubscriptionRequest]("NamedShadowDeltaUpdatedSubscriptionRequest"),
			"ShadowUpdatedSubscriptionRequest":           servicemodel.StructValidator[ShadowUpdatedSubscriptionRequest]("ShadowUpdatedSubscriptionRequest"),
			"NamedShadowUpdatedSubscriptionRequest":      servicemodel.StructValidator[NamedShadowUpdatedSubscriptionRequest]("NamedShadowUpdatedSubscriptionRequest"),
		},
	}
}
