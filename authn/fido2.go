package authn

import (
	"context"
	"crypto/sha256"

	"github.com/keys-pub/keys-ext/auth/fido2"
	"github.com/pkg/errors"
)

// HardwareKey is an Authenticator backed by a FIDO2 security key via the
// fido2 plugin.
//
// Credentials are created with the hmac-secret extension. The assertion
// output (Signature) is the hmac-secret result for a salt fixed per relying
// party, which makes it stable per credential, matching the PRF behavior the
// rest of the system expects.
type HardwareKey struct {
	plugin fido2.FIDO2Server
	pin    string
	device string
}

// NewHardwareKey creates a HardwareKey authenticator.
// If device is empty the first usable device is selected.
func NewHardwareKey(plugin fido2.FIDO2Server, pin string, device string) *HardwareKey {
	return &HardwareKey{plugin: plugin, pin: pin, device: device}
}

// Register implements Authenticator, creating an hmac-secret credential on
// the device.
func (h *HardwareKey) Register(ctx context.Context, req *RegisterRequest) (*Registration, error) {
	if h.plugin == nil {
		return nil, ErrUnsupported
	}
	if len(req.Challenge) < 16 {
		return nil, errors.Errorf("challenge too short")
	}

	logger.Debugf("Find device...")
	dev, err := h.findDevice(ctx, h.device)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, ErrUnsupported
	}

	cdh := sha256.Sum256(req.Challenge)
	logger.Debugf("Generating hmac-secret credential...")
	resp, err := h.plugin.GenerateHMACSecret(ctx, &fido2.GenerateHMACSecretRequest{
		Device:         dev.Device.Path,
		PIN:            h.pin,
		ClientDataHash: cdh[:],
		RP: &fido2.RelyingParty{
			ID:   req.RP.ID,
			Name: req.RP.Name,
		},
		User: &fido2.User{
			ID:   req.User.ID,
			Name: req.User.Name,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.CredentialID) == 0 {
		return nil, errors.Errorf("device returned no credential id")
	}

	return &Registration{RawID: resp.CredentialID}, nil
}

// Assert implements Authenticator.
func (h *HardwareKey) Assert(ctx context.Context, req *AssertRequest) (*Assertion, error) {
	if h.plugin == nil {
		return nil, ErrUnsupported
	}
	if len(req.Challenge) < 16 {
		return nil, errors.Errorf("challenge too short")
	}

	dev, err := h.findDevice(ctx, h.device)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, ErrUnsupported
	}

	var credentialIDs [][]byte
	if len(req.CredentialID) > 0 {
		credentialIDs = [][]byte{req.CredentialID}
	}

	cdh := sha256.Sum256(req.Challenge)
	// The hmac salt is fixed per relying party so the secret is stable for a
	// credential across sessions.
	salt := sha256.Sum256([]byte("assert/" + req.RPID))

	logger.Debugf("Getting hmac-secret...")
	resp, err := h.plugin.HMACSecret(ctx, &fido2.HMACSecretRequest{
		Device:         dev.Device.Path,
		PIN:            h.pin,
		ClientDataHash: cdh[:],
		RPID:           req.RPID,
		CredentialIDs:  credentialIDs,
		Salt:           salt[:],
	})
	if err != nil {
		return nil, err
	}
	if len(resp.HMACSecret) != 32 {
		return nil, errors.Errorf("invalid hmac-secret length")
	}

	rawID := req.CredentialID
	if len(rawID) == 0 {
		// Resident credential responded; the plugin doesn't echo which one,
		// so the caller can't pin it. Unwrapping still fails closed if it
		// was the wrong credential.
		return nil, ErrNoCredential
	}

	return &Assertion{
		RawID:     rawID,
		Signature: resp.HMACSecret,
	}, nil
}

type hardwareDevice struct {
	Device     *fido2.Device
	DeviceInfo *fido2.DeviceInfo
}

func (h *HardwareKey) findDevice(ctx context.Context, query string) (*hardwareDevice, error) {
	devicesResp, err := h.plugin.Devices(ctx, &fido2.DevicesRequest{})
	if err != nil {
		return nil, err
	}
	for _, device := range devicesResp.Devices {
		if query != "" && device.Path != query && device.Product != query {
			continue
		}
		infoResp, err := h.plugin.DeviceInfo(ctx, &fido2.DeviceInfoRequest{Device: device.Path})
		if err != nil {
			logger.Infof("Failed to get device info: %s", err)
			continue
		}
		if !infoResp.Info.HasExtension(fido2.HMACSecretExtension) {
			logger.Debugf("Device doesn't support hmac-secret: %s", device.Path)
			continue
		}
		return &hardwareDevice{Device: device, DeviceInfo: infoResp.Info}, nil
	}
	return nil, nil
}
