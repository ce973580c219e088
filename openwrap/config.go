package openwrap

import "sync"

// Linearity identifies the video ad presentation mode requested from OpenWrap.
type Linearity int

const (
	// LinearityUnknown leaves the linearity parameter out of the ad request.
	LinearityUnknown Linearity = iota
	LinearityLinear
	LinearityNonLinear
)

// Value returns the wire encoding of the linearity mode.
func (l Linearity) Value() int { return int(l) }

// HashType controls how the device advertising identifier is sent in the
// ad request: as-is, or as a lowercase hex SHA1/MD5 digest.
type HashType int

const (
	HashTypeRaw HashType = iota
	HashTypeSHA1
	HashTypeMD5
)

// Configuration holds settings that apply to every ad request built against
// it: privacy regulation flags, identifier hashing mode, user and application
// info, and pass-through custom key/values. Construct one with
// NewConfiguration and share it between the host application and the loader.
//
// Individual fields may be mutated at any time and are read at URL build
// time. Each accessor is guarded on its own; a build that must observe
// several fields consistently should not race concurrent writes to them.
type Configuration struct {
	mu sync.RWMutex

	gdprEnabled *bool
	gdprConsent string
	ccpa        string
	linearity   Linearity
	hashType    HashType
	custom      map[string]string
	user        *UserInfo
	app         *AppInfo
}

// NewConfiguration returns a Configuration with everything unset: GDPR
// omitted, linearity unknown, raw identifier passthrough.
func NewConfiguration() *Configuration {
	return &Configuration{}
}

// SetGDPREnabled marks the request as subject (or explicitly not subject) to
// GDPR. Until this is called the GDPR parameter is omitted entirely.
func (c *Configuration) SetGDPREnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gdprEnabled = &enabled
}

// GDPREnabled returns the GDPR flag, or nil when it was never set.
func (c *Configuration) GDPREnabled() *bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gdprEnabled == nil {
		return nil
	}
	v := *c.gdprEnabled
	return &v
}

// SetGDPRConsent sets the IAB TCF consent string sent with the request when
// GDPR regulations are in effect.
func (c *Configuration) SetGDPRConsent(consent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gdprConsent = consent
}

func (c *Configuration) GDPRConsent() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gdprConsent
}

// SetCCPA sets the IAB US privacy string. When empty the parameter is
// omitted from the request.
func (c *Configuration) SetCCPA(ccpa string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ccpa = ccpa
}

func (c *Configuration) CCPA() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ccpa
}

func (c *Configuration) SetLinearity(l Linearity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.linearity = l
}

func (c *Configuration) Linearity() Linearity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.linearity
}

// SetIdentifierHashType selects how the advertising identifier is rendered
// in the request. Exactly one identifier key is ever sent.
func (c *Configuration) SetIdentifierHashType(t HashType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashType = t
}

func (c *Configuration) IdentifierHashType() HashType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hashType
}

// SetCustomKeyValues replaces the custom key/value pairs appended verbatim to
// every ad request. The map is copied; later mutation of the argument has no
// effect.
func (c *Configuration) SetCustomKeyValues(kv map[string]string) {
	cp := make(map[string]string, len(kv))
	for k, v := range kv {
		cp[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = cp
}

// CustomKeyValues returns a copy of the custom key/value pairs, or nil when
// none are set.
func (c *Configuration) CustomKeyValues() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.custom == nil {
		return nil
	}
	cp := make(map[string]string, len(c.custom))
	for k, v := range c.custom {
		cp[k] = v
	}
	return cp
}

func (c *Configuration) SetUserInfo(u *UserInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
}

func (c *Configuration) UserInfo() *UserInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Configuration) SetAppInfo(a *AppInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.app = a
}

func (c *Configuration) AppInfo() *AppInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.app
}
