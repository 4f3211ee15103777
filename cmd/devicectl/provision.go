package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nerrad567/iot-device-sdk/internal/services/identity"
)

const (
	certificateFile = "certificate.pem.crt"
	privateKeyFile  = "private.pem.key"
)

func newProvisionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Obtain credentials and register the device",
		Long: `Provision commands use the fleet provisioning service. Connect with
claim credentials, create a certificate, then register the thing with the
returned ownership token.

Examples:
  devicectl provision create-keys --out-dir /etc/device
  devicectl provision create-from-csr --csr device.csr --out-dir /etc/device
  devicectl provision register --template factory --token <token> --param SerialNumber=42`,
	}

	cmd.AddCommand(newCreateKeysCmd(flags))
	cmd.AddCommand(newCreateFromCsrCmd(flags))
	cmd.AddCommand(newRegisterCmd(flags))
	return cmd
}

// certificateSummary is printed instead of the raw response so the private
// key never reaches the terminal.
type certificateSummary struct {
	CertificateID             string `json:"certificateId"`
	CertificateOwnershipToken string `json:"certificateOwnershipToken"`
	CertificateFile           string `json:"certificateFile,omitempty"`
	PrivateKeyFile            string `json:"privateKeyFile,omitempty"`
}

// writeCredentials stores the certificate and, when non-empty, the private
// key under dir. Both files are readable by the owner only.
func writeCredentials(dir, certificatePem, privateKey string) (certPath, keyPath string, err error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("creating %s: %w", dir, err)
	}

	certPath = filepath.Join(dir, certificateFile)
	if err := os.WriteFile(certPath, []byte(certificatePem), 0o600); err != nil {
		return "", "", fmt.Errorf("writing certificate: %w", err)
	}

	if privateKey != "" {
		keyPath = filepath.Join(dir, privateKeyFile)
		if err := os.WriteFile(keyPath, []byte(privateKey), 0o600); err != nil {
			return "", "", fmt.Errorf("writing private key: %w", err)
		}
	}
	return certPath, keyPath, nil
}

func newCreateKeysCmd(flags *globalFlags) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "create-keys",
		Short: "Create a key pair and certificate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, false, func(ctx context.Context, a *app, _ string) error {
				resp, err := a.identity().CreateKeysAndCertificate(ctx, identity.CreateKeysAndCertificateRequest{})
				if err != nil {
					return describeServiceError(cmd, err)
				}

				summary := certificateSummary{
					CertificateID:             resp.CertificateID,
					CertificateOwnershipToken: resp.CertificateOwnershipToken,
				}
				summary.CertificateFile, summary.PrivateKeyFile, err = writeCredentials(outDir, resp.CertificatePem, resp.PrivateKey)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory for the certificate and private key")
	return cmd
}

func newCreateFromCsrCmd(flags *globalFlags) *cobra.Command {
	var (
		csrPath string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "create-from-csr",
		Short: "Sign a certificate signing request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			csr, err := os.ReadFile(csrPath)
			if err != nil {
				return fmt.Errorf("reading CSR: %w", err)
			}
			if len(csr) == 0 {
				return errors.New("CSR file is empty")
			}

			return withApp(cmd, flags, false, func(ctx context.Context, a *app, _ string) error {
				resp, err := a.identity().CreateCertificateFromCsr(ctx, identity.CreateCertificateFromCsrRequest{
					CertificateSigningRequest: string(csr),
				})
				if err != nil {
					return describeServiceError(cmd, err)
				}

				summary := certificateSummary{
					CertificateID:             resp.CertificateID,
					CertificateOwnershipToken: resp.CertificateOwnershipToken,
				}
				summary.CertificateFile, _, err = writeCredentials(outDir, resp.CertificatePem, "")
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&csrPath, "csr", "", "path to a PEM certificate signing request")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "directory for the certificate")
	_ = cmd.MarkFlagRequired("csr")
	return cmd
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var (
		template string
		token    string
		params   []string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the thing with a provisioning template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parameters, err := parseKeyValues(params)
			if err != nil {
				return err
			}

			return withApp(cmd, flags, false, func(ctx context.Context, a *app, _ string) error {
				resp, err := a.identity().RegisterThing(ctx, identity.RegisterThingRequest{
					TemplateName:              template,
					CertificateOwnershipToken: token,
					Parameters:                parameters,
				})
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "provisioning template name")
	cmd.Flags().StringVar(&token, "token", "", "certificate ownership token")
	cmd.Flags().StringArrayVar(&params, "param", nil, "template parameter as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
