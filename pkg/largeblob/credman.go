package largeblob

import "github.com/SigmaG33/libfido2/pkg/ctap"

// Credential is a resident credential as surfaced by the credential
// management collaborator. Only the fields Trim consumes appear here.
type Credential struct {
	// ID is the credential id.
	ID []byte

	// LargeBlobKey is the credential's 32-byte large-blob key, or nil
	// when the credential was created without one.
	LargeBlobKey []byte
}

// CredentialManager enumerates resident credentials. Trim uses it to
// collect the set of live large-blob keys; the concrete
// authenticatorCredentialManagement RPC lives outside this package.
type CredentialManager interface {
	// RelyingParties lists the relying-party ids with resident
	// credentials on the device.
	RelyingParties(dev ctap.Device, pin string, timeoutMs int) ([]string, error)

	// Credentials lists the resident credentials for one relying party.
	Credentials(dev ctap.Device, rpID, pin string, timeoutMs int) ([]Credential, error)
}
