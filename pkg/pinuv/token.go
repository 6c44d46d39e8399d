package pinuv

import (
	"errors"
	"fmt"

	"github.com/SigmaG33/libfido2/pkg/blob"
	"github.com/SigmaG33/libfido2/pkg/crypto"
	"github.com/SigmaG33/libfido2/pkg/ctap"
)

// pinUvAuthToken permissions (CTAP 2.1 Section 6.5.5.7).
const (
	PermMakeCredential       = 0x01
	PermGetAssertion         = 0x02
	PermCredentialManagement = 0x04
	PermBioEnrollment        = 0x08
	PermLargeBlobWrite       = 0x10
	PermAuthenticatorConfig  = 0x20
)

// authenticatorClientPIN subcommands (CTAP 2.1 Section 6.5.5).
const (
	subcmdGetPINRetries    = 0x01
	subcmdGetKeyAgreement  = 0x02
	subcmdSetPIN           = 0x03
	subcmdChangePIN        = 0x04
	subcmdGetPinToken      = 0x05
	subcmdGetTokenUsingUv  = 0x06
	subcmdGetUVRetries     = 0x07
	subcmdGetTokenUsingPin = 0x09
)

// pinHashLen is the truncated SHA-256(PIN) length sent as pinHashEnc.
const pinHashLen = 16

// Token acquisition errors.
var (
	ErrNoTokenPath = errors.New("pinuv: no PIN supplied and user verification unavailable")
)

// clientPINRequest is the authenticatorClientPIN parameter map.
type clientPINRequest struct {
	Protocol     uint64   `cbor:"1,keyasint"`
	Subcommand   uint64   `cbor:"2,keyasint"`
	KeyAgreement *COSEKey `cbor:"3,keyasint,omitempty"`
	PinHashEnc   []byte   `cbor:"6,keyasint,omitempty"`
	Permissions  uint64   `cbor:"9,keyasint,omitempty"`
	RPID         string   `cbor:"10,keyasint,omitempty"`
}

// clientPINResponse is the authenticatorClientPIN response map.
type clientPINResponse struct {
	KeyAgreement *COSEKey `cbor:"1,keyasint,omitempty"`
	Token        []byte   `cbor:"2,keyasint,omitempty"`
}

// Token is a decrypted pinUvAuthToken bound to the protocol it was obtained
// under. Its lifetime is one client operation; call Destroy when done.
type Token struct {
	proto Protocol
	token *blob.Buffer
}

// ProtocolID returns the protocol version the token was obtained under, as
// sent in pinUvAuthProtocol fields.
func (t *Token) ProtocolID() uint64 {
	return uint64(t.proto.ID())
}

// Authenticate MACs message under the token.
func (t *Token) Authenticate(message []byte) []byte {
	return t.proto.Authenticate(t.token.Bytes(), message)
}

// Destroy zeroizes the token material.
func (t *Token) Destroy() {
	t.token.Reset()
}

// CanGetUVToken reports whether a pinUvAuthToken can be obtained from the
// device: the authenticator supports tokens and either a PIN was supplied or
// built-in user verification is usable.
func CanGetUVToken(dev ctap.Device, pin string) bool {
	info := dev.Info()
	if pin != "" {
		return info.ClientPin || info.PinUvAuthToken
	}
	return info.PinUvAuthToken && info.UserVerification
}

// selectProtocol picks the preferred protocol version the device advertises.
func selectProtocol(dev ctap.Device) (Protocol, error) {
	versions := dev.Info().PinUvAuthProtocols
	if len(versions) == 0 {
		return New(ProtocolV1)
	}
	for _, v := range versions {
		if p, err := New(ProtocolID(v)); err == nil {
			return p, nil
		}
	}
	return nil, ErrUnsupportedProtocol
}

// GetUVToken obtains a pinUvAuthToken with the requested permissions.
//
// The exchange is: getKeyAgreement for the authenticator's ECDH key, the
// platform-side encapsulation, then getPinUvAuthTokenUsingPinWithPermissions
// (or the UV variant when no PIN is supplied, or legacy getPinToken when the
// authenticator predates permission-scoped tokens). The shared secret and
// PIN hash are zeroized on every exit path.
func GetUVToken(dev ctap.Device, pin string, permissions uint64, rpID string, timeoutMs int) (*Token, error) {
	info := dev.Info()
	if pin == "" && !(info.PinUvAuthToken && info.UserVerification) {
		return nil, ErrNoTokenPath
	}

	proto, err := selectProtocol(dev)
	if err != nil {
		return nil, err
	}

	var ka clientPINResponse
	err = ctap.Call(dev, ctap.CmdClientPIN, &clientPINRequest{
		Protocol:   uint64(proto.ID()),
		Subcommand: subcmdGetKeyAgreement,
	}, &ka, timeoutMs)
	if err != nil {
		return nil, err
	}
	if ka.KeyAgreement == nil {
		return nil, fmt.Errorf("%w: missing key agreement", ctap.ErrRx)
	}
	if err := ka.KeyAgreement.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ctap.ErrRx, err)
	}

	platformKey, secret, err := proto.Encapsulate(ka.KeyAgreement.X, ka.KeyAgreement.Y)
	if err != nil {
		return nil, err
	}
	defer blob.Zero(secret)

	req := &clientPINRequest{
		Protocol:     uint64(proto.ID()),
		KeyAgreement: platformKey,
	}

	switch {
	case pin != "":
		pinHash := crypto.SHA256Slice([]byte(pin))
		enc, encErr := proto.Encrypt(secret, pinHash[:pinHashLen])
		blob.Zero(pinHash)
		if encErr != nil {
			return nil, encErr
		}
		req.PinHashEnc = enc
		if info.PinUvAuthToken {
			req.Subcommand = subcmdGetTokenUsingPin
			req.Permissions = permissions
			req.RPID = rpID
		} else {
			req.Subcommand = subcmdGetPinToken
		}
	default:
		req.Subcommand = subcmdGetTokenUsingUv
		req.Permissions = permissions
		req.RPID = rpID
	}

	var rsp clientPINResponse
	if err := ctap.Call(dev, ctap.CmdClientPIN, req, &rsp, timeoutMs); err != nil {
		return nil, err
	}
	if len(rsp.Token) == 0 {
		return nil, fmt.Errorf("%w: missing pinUvAuthToken", ctap.ErrRx)
	}

	raw, err := proto.Decrypt(secret, rsp.Token)
	if err != nil {
		return nil, fmt.Errorf("pinuv: decrypt token: %w", err)
	}

	token := &Token{proto: proto, token: blob.FromBytes(raw)}
	blob.Zero(raw)
	return token, nil
}
