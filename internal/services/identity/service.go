package identity

import (
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// Operation names.
const (
	OpCreateKeysAndCertificate = "CreateKeysAndCertificate"
	OpCreateCertificateFromCsr = "CreateCertificateFromCsr"
	OpRegisterThing            = "RegisterThing"
)

// Fixed publish topics.
const (
	CreateKeysAndCertificateTopic = "$aws/certificates/create/json"
	CreateCertificateFromCsrTopic = "$aws/certificates/create-from-csr/json"
)

// RegisterThingTopic returns the provisioning topic of a template.
func RegisterThingTopic(templateName string) string {
	return "$aws/provisioning-templates/" + templateName + "/provision/json"
}

// identityOperation builds an uncorrelated operation; responses match the
// earliest published request waiting on the same topics.
func identityOperation[Req, Resp any](name string, topic func(Req) string) *servicemodel.OperationModel {
	return servicemodel.NewOperation(servicemodel.OperationSpec[Req]{
		Name:           name,
		InputShapeName: name + "Request",
		PublishTopic:   topic,
		ResponsePaths: func(r Req) []servicemodel.ResponsePath {
			return servicemodel.AcceptedRejected[Resp, ErrorResponse](topic(r), "", name+" request rejected")
		},
	})
}

// NewServiceModel returns the fleet provisioning service model.
func NewServiceModel() *servicemodel.ServiceModel {
	return &servicemodel.ServiceModel{
		RequestResponseOperations: map[string]*servicemodel.OperationModel{
			OpCreateKeysAndCertificate: identityOperation[CreateKeysAndCertificateRequest, CreateKeysAndCertificateResponse](
				OpCreateKeysAndCertificate,
				func(CreateKeysAndCertificateRequest) string { return CreateKeysAndCertificateTopic }),
			OpCreateCertificateFromCsr: identityOperation[CreateCertificateFromCsrRequest, CreateCertificateFromCsrResponse](
				OpCreateCertificateFromCsr,
				func(CreateCertificateFromCsrRequest) string { return CreateCertificateFromCsrTopic }),
			OpRegisterThing: identityOperation[RegisterThingRequest, RegisterThingResponse](
				OpRegisterThing,
				func(r RegisterThingRequest) string { return RegisterThingTopic(r.TemplateName) }),
		},
		StreamingOperations: map[string]*servicemodel.StreamingOperationModel{},
		Shapes: map[string]servicemodel.ShapeValidator{
			"CreateKeysAndCertificateRequest": servicemodel.StructValidator[CreateKeysAndCertificateRequest]("CreateKeysAndCertificateRequest"),
			"CreateCertificateFromCsrRequest": servicemodel.StructValidator[CreateCertificateFromCsrRequest]("CreateCertificateFromCsrRequest"),
			"RegisterThingRequest":            servicemodel.StructValidator[RegisterThingRequest]("RegisterThingRequest"),
		},
	}
}
