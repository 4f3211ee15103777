package identity

// ErrorResponse is the body of every rejected provisioning request.
type ErrorResponse struct {
	StatusCode   int    `json:"statusCode"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// CreateKeysAndCertificateRequest asks the service to generate a key pair
// and certificate.
type CreateKeysAndCertificateRequest struct{}

// CreateKeysAndCertificateResponse carries the new credentials. The private
// key is only ever returned here.
type CreateKeysAndCertificateResponse struct {
	CertificateID             string `json:"certificateId"`
	CertificatePem            string `json:"certificatePem"`
	PrivateKey                string `json:"privateKey"`
	CertificateOwnershipToken string `json:"certificateOwnershipToken"`
}

// CreateCertificateFromCsrRequest asks the service to sign a CSR.
type CreateCertificateFromCsrRequest struct {
	CertificateSigningRequest string `json:"certificateSigningRequest" validate:"required"`
}

// CreateCertificateFromCsrResponse carries the signed certificate.
type CreateCertificateFromCsrResponse struct {
	CertificateID             string `json:"certificateId"`
	CertificatePem            string `json:"certificatePem"`
	CertificateOwnershipToken string `json:"certificateOwnershipToken"`
}

// RegisterThingRequest provisions a thing from a template.
type RegisterThingRequest struct {
	TemplateName              string            `json:"-" validate:"required,topicsafe"`
	CertificateOwnershipToken string            `json:"certificateOwnershipToken" validate:"required"`
	Parameters                map[string]string `json:"parameters,omitempty"`
}

// RegisterThingResponse names the provisioned thing.
type RegisterThingResponse struct {
	ThingName           string            `json:"thingName"`
	DeviceConfiguration map[string]string `json:"deviceConfiguration,omitempty"`
}
