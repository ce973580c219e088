package openwrap

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by NewAdRequest.
const (
	DefaultEndpoint       = "https://ow.pubmatic.com/video/json"
	DefaultNetworkTimeout = 5000 * time.Millisecond

	DefaultMinAds        = 1
	DefaultMaxAds        = 3
	DefaultAdMinDuration = 6
	DefaultAdMaxDuration = 60
)

// Wire-key catalog. Every serialized field maps to one of these fixed keys;
// only caller-supplied custom key/values and bidder params bypass the table.
const (
	keyPublisherID      = "app.pub.id"
	keyProfileID        = "req.ext.wrapper.profileid"
	keyAdUnitID         = "imp.tagid"
	keyAdSize           = "imp.vid.sz"
	keyVideoMinDuration = "imp.vid.minduration"
	keyVideoMaxDuration = "imp.vid.maxduration"
	keyVersionID        = "req.ext.wrapper.versionid"
	keyDebug            = "debug"
	keyTest             = "req.test"
	keyAdFormat         = "af"
	keyAdServer         = "adserver"
	keyResponseFormat   = "f"
	keyRequestMIME      = "imp.vid.mimes"
	keyLinearity        = "imp.vid.linearity"

	keyLMT       = "dev.lmt"
	keyDNT       = "dev.dnt"
	keyUserAgent = "dev.ua"
	keyJSEnabled = "dev.js"
	keyIFA       = "dev.ifa"
	keyIFASHA1   = "dev.didsha1"
	keyIFAMD5    = "dev.didmd5"
	keyLatitude  = "dev.geo.lat"
	keyLongitude = "dev.geo.lon"
	keyGeoType   = "dev.geo.type"
	keyCountry   = "dev.geo.country"
	keyCity      = "dev.geo.city"
	keyMetro     = "dev.geo.metro"
	keyZip       = "dev.geo.zip"
	keyUTCOffset = "dev.geo.utcoffset"

	keyBirthYear = "user.yob"
	keyGender    = "user.gender"

	keyAppName     = "app.name"
	keyAppBundle   = "app.bundle"
	keyAppDomain   = "app.domain"
	keyAppStoreURL = "app.storeurl"
	keyAppCategory = "app.cat"
	keyAppPaid     = "app.paid"

	keyGDPR        = "regs.ext.gdpr"
	keyGDPRConsent = "user.consent"
	keyCCPA        = "regs.ext.us_privacy"

	keyBidderParams = "pwtbidrprm"

	keyPodMinAds        = "imp.vid.ext.adpod.minads"
	keyPodMaxAds        = "imp.vid.ext.adpod.maxads"
	keyPodAdMinDuration = "imp.vid.ext.adpod.adminduration"
	keyPodAdMaxDuration = "imp.vid.ext.adpod.admaxduration"
)

// Protocol constants sent with every request.
const (
	adFormatValue       = "video"
	adServerValue       = "DFP"
	responseFormatValue = "json"
	requestMIMEValue    = "video/mp4"
	jsEnabledValue      = "1"
)

// AdSize is the requested video ad size in pixels.
type AdSize struct {
	Width  int
	Height int
}

// String renders the size in the "<w>x<h>" wire format.
func (s AdSize) String() string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// AdRequest describes a single OpenWrap ad request. Create one with
// NewAdRequest, apply optional setters, then hand it to an AdsLoader. A
// request must not be mutated after Load; the one exception is the resolved
// advertising identifier, attached exactly once by the identifier provider
// before dispatch.
//
// Each request carries a unique identity used to tag and cancel its network
// operations; reusing a request object reuses that identity.
type AdRequest struct {
	publisherID string
	profileID   int
	adUnitID    string
	adSize      AdSize

	endpoint       string
	networkTimeout time.Duration
	versionID      int
	userAgent      string
	debug          *bool
	test           *bool
	bidderParams   json.RawMessage

	minAds        int
	maxAds        int
	adMinDuration int
	adMaxDuration int

	id     uuid.UUID
	adInfo atomic.Pointer[AdvertisingInfo]
}

// NewAdRequest constructs an AdRequest with the required OpenWrap
// parameters and library defaults for everything else.
func NewAdRequest(publisherID string, profileID int, adUnitID string, adSize AdSize) *AdRequest {
	return &AdRequest{
		publisherID:    publisherID,
		profileID:      profileID,
		adUnitID:       adUnitID,
		adSize:         adSize,
		endpoint:       DefaultEndpoint,
		networkTimeout: DefaultNetworkTimeout,
		minAds:         DefaultMinAds,
		maxAds:         DefaultMaxAds,
		adMinDuration:  DefaultAdMinDuration,
		adMaxDuration:  DefaultAdMaxDuration,
		id:             uuid.New(),
	}
}

// ID is the request identity used for cancellation tagging.
func (r *AdRequest) ID() uuid.UUID { return r.id }

// SetEndpoint overrides the OpenWrap endpoint the request is sent to.
func (r *AdRequest) SetEndpoint(endpoint string) { r.endpoint = endpoint }

// SetNetworkTimeout overrides DefaultNetworkTimeout. The timeout bounds the
// whole dispatch including retries and is never serialized.
func (r *AdRequest) SetNetworkTimeout(d time.Duration) { r.networkTimeout = d }

// Timeout returns the effective network timeout for the request.
func (r *AdRequest) Timeout() time.Duration {
	if r.networkTimeout <= 0 {
		return DefaultNetworkTimeout
	}
	return r.networkTimeout
}

// SetVersionID sets the OpenWrap profile version id. Zero means omit.
func (r *AdRequest) SetVersionID(versionID int) { r.versionID = versionID }

// SetDebug toggles OpenWrap debug mode. Until called the parameter is
// omitted.
func (r *AdRequest) SetDebug(enabled bool) { r.debug = &enabled }

// SetTest toggles OpenWrap test mode. Until called the parameter is omitted.
func (r *AdRequest) SetTest(enabled bool) { r.test = &enabled }

// SetUserAgent sets the device user agent string sent with the request.
func (r *AdRequest) SetUserAgent(ua string) { r.userAgent = ua }

// SetBidderCustomParams sets partner-specific keywords as a raw JSON
// document, serialized verbatim under a single key. Expected shape:
//
//	{"pubmatic": {"keywords": [{"key": "dctr", "value": ["val1", "val2"]}]}}
func (r *AdRequest) SetBidderCustomParams(params json.RawMessage) { r.bidderParams = params }

// SetAdPodConfig bounds the requested ad pod: ad count range and per-ad
// duration range in seconds. The durations also become the video
// min/max duration parameters.
func (r *AdRequest) SetAdPodConfig(minAds, maxAds, adMinDuration, adMaxDuration int) {
	r.minAds = minAds
	r.maxAds = maxAds
	r.adMinDuration = adMinDuration
	r.adMaxDuration = adMaxDuration
}

// AdvertisingInfo returns the resolved advertising identifier, or nil when
// resolution has not happened or failed.
func (r *AdRequest) AdvertisingInfo() *AdvertisingInfo { return r.adInfo.Load() }

// setAdvertisingInfo attaches the resolved identifier. First write wins so a
// straggling refresh cannot swap the identifier mid-dispatch.
func (r *AdRequest) setAdvertisingInfo(info *AdvertisingInfo) {
	r.adInfo.CompareAndSwap(nil, info)
}

// BuildURL renders the request against cfg into the canonical OpenWrap URL.
// The query string is deterministic: calling it twice with unchanged
// configuration yields identical output.
func (r *AdRequest) BuildURL(cfg *Configuration) (string, error) {
	base, err := url.Parse(r.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", r.endpoint, err)
	}

	q := url.Values{}
	q.Set(keyPublisherID, r.publisherID)
	q.Set(keyProfileID, strconv.Itoa(r.profileID))
	q.Set(keyAdUnitID, r.adUnitID)
	q.Set(keyAdSize, r.adSize.String())
	q.Set(keyRequestMIME, requestMIMEValue)
	q.Set(keyAdFormat, adFormatValue)
	q.Set(keyAdServer, adServerValue)
	q.Set(keyResponseFormat, responseFormatValue)
	q.Set(keyVideoMinDuration, strconv.Itoa(r.adMinDuration))
	q.Set(keyVideoMaxDuration, strconv.Itoa(r.adMaxDuration))

	if r.versionID > 0 {
		q.Set(keyVersionID, strconv.Itoa(r.versionID))
	}
	if r.debug != nil {
		q.Set(keyDebug, boolValue(*r.debug))
	}
	if r.test != nil {
		q.Set(keyTest, boolValue(*r.test))
	}

	if gdpr := cfg.GDPREnabled(); gdpr != nil {
		q.Set(keyGDPR, boolValue(*gdpr))
	}
	if consent := cfg.GDPRConsent(); consent != "" {
		q.Set(keyGDPRConsent, consent)
	}
	if ccpa := cfg.CCPA(); ccpa != "" {
		q.Set(keyCCPA, ccpa)
	}
	if lin := cfg.Linearity(); lin != LinearityUnknown {
		q.Set(keyLinearity, strconv.Itoa(lin.Value()))
	}

	r.appendDeviceData(q, cfg)
	r.appendUserData(q, cfg)
	r.appendAppData(q, cfg)
	r.appendAdPodData(q, cfg)

	if len(r.bidderParams) > 0 {
		q.Set(keyBidderParams, string(r.bidderParams))
	}

	// Custom key/values pass through verbatim and may shadow catalog keys;
	// last value wins.
	for k, v := range cfg.CustomKeyValues() {
		q.Set(k, v)
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}

// appendDeviceData adds device parameters. Identifier-derived keys appear
// only when resolution succeeded; exactly one of the raw/MD5/SHA1 keys is
// ever present. The JS flag and UTC offset are sent unconditionally.
func (r *AdRequest) appendDeviceData(q url.Values, cfg *Configuration) {
	if info := r.adInfo.Load(); info != nil {
		// Historic duplication: the limit-tracking state goes out under
		// both the lmt and dnt keys.
		lmt := boolValue(info.LimitAdTracking)
		q.Set(keyLMT, lmt)
		q.Set(keyDNT, lmt)

		if info.ID != "" {
			switch cfg.IdentifierHashType() {
			case HashTypeMD5:
				q.Set(keyIFAMD5, md5Hex(info.ID))
			case HashTypeSHA1:
				q.Set(keyIFASHA1, sha1Hex(info.ID))
			default:
				q.Set(keyIFA, info.ID)
			}
		}
	}

	if r.userAgent != "" {
		q.Set(keyUserAgent, r.userAgent)
	}

	q.Set(keyJSEnabled, jsEnabledValue)
	q.Set(keyUTCOffset, strconv.Itoa(utcOffsetMinutes(time.Now())))
}

func (r *AdRequest) appendUserData(q url.Values, cfg *Configuration) {
	user := cfg.UserInfo()
	if user == nil {
		return
	}

	if loc := user.Location; loc != nil {
		q.Set(keyLatitude, strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
		q.Set(keyLongitude, strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
		q.Set(keyGeoType, strconv.Itoa(loc.Source.Value()))
	}

	if user.Country != "" {
		q.Set(keyCountry, user.Country)
	}
	if user.City != "" {
		q.Set(keyCity, user.City)
	}
	if user.Metro != "" {
		q.Set(keyMetro, user.Metro)
	}
	if user.Zip != "" {
		q.Set(keyZip, user.Zip)
	}
	if user.Gender != "" {
		q.Set(keyGender, string(user.Gender))
	}
	if user.BirthYear > 0 {
		q.Set(keyBirthYear, strconv.Itoa(user.BirthYear))
	}
}

func (r *AdRequest) appendAppData(q url.Values, cfg *Configuration) {
	app := cfg.AppInfo()
	if app == nil {
		return
	}

	if app.StoreURL != "" {
		q.Set(keyAppStoreURL, app.StoreURL)
	}
	if app.Bundle != "" {
		q.Set(keyAppBundle, app.Bundle)
	}
	if app.Name != "" {
		q.Set(keyAppName, app.Name)
	}
	if app.Domain != "" {
		q.Set(keyAppDomain, app.Domain)
	}
	if app.Categories != "" {
		q.Set(keyAppCategory, app.Categories)
	}
	if app.Paid != nil {
		q.Set(keyAppPaid, boolValue(*app.Paid))
	}
}

// appendAdPodData writes the pod bounds, but only when application info is
// present. The gating mirrors upstream behavior and is intentional.
func (r *AdRequest) appendAdPodData(q url.Values, cfg *Configuration) {
	if cfg.AppInfo() == nil {
		return
	}
	q.Set(keyPodMinAds, strconv.Itoa(r.minAds))
	q.Set(keyPodMaxAds, strconv.Itoa(r.maxAds))
	q.Set(keyPodAdMinDuration, strconv.Itoa(r.adMinDuration))
	q.Set(keyPodAdMaxDuration, strconv.Itoa(r.adMaxDuration))
}
