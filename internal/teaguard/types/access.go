package types

// AccessMethod labels how a probe was (or would have been) matched.
type AccessMethod string

const (
	MethodFace        AccessMethod = "FaceMatch"
	MethodCard        AccessMethod = "CardMatch"
	MethodFingerprint AccessMethod = "FingerprintMatch"
	MethodManual      AccessMethod = "Manual"
	MethodFireAlert   AccessMethod = "FireAlert"
	MethodUnknown     AccessMethod = "Unknown"
)

// AccessOutcome is the result column of the access log.
type AccessOutcome string

const (
	OutcomeSuccess AccessOutcome = "Success"
	OutcomeDenied  AccessOutcome = "Denied"
)

// DefaultLocation is recorded when a probe omits its location.
const DefaultLocation = "Main Entrance"

// Probe carries the credential material presented at the door. Any subset
// of the three fields may be supplied; an entirely empty probe is invalid.
type Probe struct {
	FaceTemplate        string `json:"faceTemplate,omitempty"`
	FingerprintTemplate string `json:"fingerprintTemplate,omitempty"`
	CardID              string `json:"cardId,omitempty"`
	Location            string `json:"location,omitempty"`
}

// Empty reports whether no credential field was supplied at all.
func (p Probe) Empty() bool {
	return p.FaceTemplate == "" && p.FingerprintTemplate == "" && p.CardID == ""
}

// MatchDecision is the matcher's answer for one probe.
type MatchDecision struct {
	Authenticated bool
	Identity      *Identity // nil unless Authenticated
	Method        AccessMethod
	Location      string
	Message       string
}
