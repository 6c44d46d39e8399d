package largeblob

import (
	"fmt"

	"github.com/pion/logging"

	"github.com/SigmaG33/libfido2/pkg/ctap"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Tokens acquires write-authorization tokens.
	// If nil, the PIN/UV subprotocol default is used.
	Tokens TokenSource

	// Credentials enumerates resident credentials for Trim.
	// If nil, Trim fails with ErrNoCredentialManager.
	Credentials CredentialManager

	// Timeout is the per-round-trip receive timeout in milliseconds.
	// Zero defaults to no timeout (ctap.NoTimeout).
	Timeout int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Client performs large-blob operations against one authenticator.
//
// The client holds the device exclusively for the duration of each
// operation and issues its commands strictly in sequence. Callers needing
// parallelism across devices use one client per device.
type Client struct {
	dev       ctap.Device
	tokens    TokenSource
	creds     CredentialManager
	timeoutMs int
	log       logging.LeveledLogger
}

// NewClient creates a large-blob client for the given device.
func NewClient(dev ctap.Device, config ClientConfig) *Client {
	c := &Client{
		dev:       dev,
		tokens:    config.Tokens,
		creds:     config.Credentials,
		timeoutMs: config.Timeout,
	}
	if c.tokens == nil {
		c.tokens = pinUVTokenSource{}
	}
	if c.timeoutMs == 0 {
		c.timeoutMs = ctap.NoTimeout
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("largeblob")
	}
	return c
}

// checkKey validates a caller-supplied large-blob key.
func checkKey(key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidArgument, KeySize, len(key))
	}
	return nil
}

// readArray fetches and parses the device's current array. Integrity or
// parse failures surface as the empty array.
func (c *Client) readArray() (*Array, error) {
	wire, err := readArrayBytes(c.dev, c.timeoutMs)
	if err != nil {
		return nil, err
	}
	array := decodeArray(wire)
	if c.log != nil {
		c.log.Debugf("read %d bytes, %d elements", len(wire), array.Len())
	}
	return array, nil
}

// writeArray serializes the array and writes it back under a token when
// one can be acquired. The token lives for exactly this write.
func (c *Client) writeArray(array *Array, pin string) error {
	wire, err := array.serialize()
	if err != nil {
		return err
	}

	var token Token
	if c.tokens.CanGetUVToken(c.dev, pin) {
		if token, err = c.tokens.GetUVToken(c.dev, pin, c.timeoutMs); err != nil {
			return err
		}
		defer token.Destroy()
	}

	if c.log != nil {
		c.log.Debugf("writing %d bytes, %d elements, authenticated=%v", len(wire), array.Len(), token != nil)
	}
	return writeArrayBytes(c.dev, wire, token, c.timeoutMs)
}

// Get returns the plaintext of the entry sealed under key.
// It fails with ErrNoEntry when no entry decrypts under the key; a corrupt
// or missing array reads as empty and therefore also yields ErrNoEntry.
func (c *Client) Get(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	array, err := c.readArray()
	if err != nil {
		return nil, err
	}

	_, plaintext, ok := array.lookup(key)
	if !ok {
		return nil, ErrNoEntry
	}
	return plaintext, nil
}

// Put stores plaintext sealed under key, replacing the existing entry for
// that key in place or appending a new one. The empty plaintext is not a
// valid blob.
func (c *Client) Put(key, plaintext []byte, pin string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if len(plaintext) == 0 {
		return fmt.Errorf("%w: empty plaintext", ErrInvalidArgument)
	}

	array, err := c.readArray()
	if err != nil {
		return err
	}

	entry, err := sealEntry(key, plaintext)
	if err != nil {
		return err
	}

	if index, _, ok := array.lookup(key); ok {
		err = array.replace(index, entry)
	} else {
		err = array.insert(entry)
	}
	if err != nil {
		return err
	}

	return c.writeArray(array, pin)
}

// Remove drops the entry sealed under key. Removing a key with no entry
// succeeds and rewrites the array unchanged.
func (c *Client) Remove(key []byte, pin string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	array, err := c.readArray()
	if err != nil {
		return err
	}

	if index, _, ok := array.lookup(key); ok {
		array.remove(index)
	}

	return c.writeArray(array, pin)
}

// Trim drops every entry that decodes but no longer decrypts under any
// resident credential's large-blob key. Entries that do not decode are
// preserved: they may belong to a future format revision.
func (c *Client) Trim(pin string) error {
	if c.creds == nil {
		return ErrNoCredentialManager
	}

	keys, err := c.residentKeys(pin)
	if err != nil {
		return err
	}

	array, err := c.readArray()
	if err != nil {
		return err
	}

	kept := &Array{}
	for _, raw := range array.elements {
		entry, err := decodeEntry(raw)
		if err != nil {
			// Not ours to judge; keep it.
			kept.elements = append(kept.elements, raw)
			continue
		}
		if entryMatchesAny(entry, keys) {
			kept.elements = append(kept.elements, raw)
		}
	}

	if c.log != nil {
		c.log.Infof("trim: %d of %d elements kept", kept.Len(), array.Len())
	}
	return c.writeArray(kept, pin)
}

// residentKeys collects the large-blob key of every resident credential
// across every relying party.
func (c *Client) residentKeys(pin string) ([][]byte, error) {
	rps, err := c.creds.RelyingParties(c.dev, pin, c.timeoutMs)
	if err != nil {
		return nil, err
	}

	var keys [][]byte
	for _, rpID := range rps {
		creds, err := c.creds.Credentials(c.dev, rpID, pin, c.timeoutMs)
		if err != nil {
			return nil, err
		}
		for _, cred := range creds {
			if len(cred.LargeBlobKey) == KeySize {
				keys = append(keys, cred.LargeBlobKey)
			}
		}
	}
	return keys, nil
}

// entryMatchesAny trial-decrypts the entry under each candidate key.
func entryMatchesAny(entry *Entry, keys [][]byte) bool {
	for _, key := range keys {
		if _, ok := entry.open(key); ok {
			return true
		}
	}
	return false
}
