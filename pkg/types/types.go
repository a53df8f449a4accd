package types

import (
	"fmt"
	"time"
)

// ClusterRef identifies the provisioned CAPI cluster referenced by a
// management cluster object.
type ClusterRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// ClusterRecord represents one candidate cluster as reported by the
// inventory provider. Records are built fresh on every run and never
// mutated after construction.
type ClusterRecord struct {
	// Identity of the management cluster object. Policy patterns match
	// against these.
	Name      string `json:"name"`
	Namespace string `json:"namespace"`

	Labels map[string]string `json:"labels"`

	// CreationTimestamp is the RFC3339 creation time of the management
	// cluster object, kept as a string so parse failures surface as
	// per-cluster decisions rather than inventory errors.
	CreationTimestamp string `json:"creation_timestamp"`

	// Ref is the CAPI cluster this record points at; nil when the
	// management object carries no reference.
	Ref *ClusterRef `json:"ref,omitempty"`

	// Resolvable reports whether the referenced CAPI cluster actually
	// exists. Only meaningful when Ref is set.
	Resolvable bool `json:"resolvable"`
}

// Owner returns the owner label, or "N/A" when unset.
func (r ClusterRecord) Owner() string {
	if v, ok := r.Labels["owner"]; ok && v != "" {
		return v
	}
	return "N/A"
}

// ExpiresLabel returns the expires label, or "N/A" when unset.
func (r ClusterRecord) ExpiresLabel() string {
	if v, ok := r.Labels["expires"]; ok && v != "" {
		return v
	}
	return "N/A"
}

// TargetName returns the CAPI cluster name for display and history keying.
func (r ClusterRecord) TargetName() string {
	if r.Ref != nil {
		return r.Ref.Name
	}
	return "unknown"
}

// TargetNamespace returns the CAPI cluster namespace for display and
// history keying.
func (r ClusterRecord) TargetNamespace() string {
	if r.Ref != nil {
		return r.Ref.Namespace
	}
	return "unknown"
}

// Outcome is the terminal verdict for a single cluster in a single run.
type Outcome int

const (
	OutcomeDelete Outcome = iota
	OutcomeProtect
)

func (o Outcome) String() string {
	if o == OutcomeDelete {
		return "delete"
	}
	return "protect"
}

// ReasonKind tags the single terminating rule that produced a decision.
type ReasonKind int

const (
	ReasonManagementCluster ReasonKind = iota
	ReasonPolicyProtected
	ReasonGracePeriod
	ReasonMissingExpires
	ReasonMissingLabel
	ReasonLabelMismatch
	ReasonInvalidExpiry
	ReasonExpired
	ReasonNotYetExpired
	ReasonNoClusterRef
	ReasonClusterNotFound
)

// Reason carries the rule category plus the data needed to render the
// user-facing string. Callers branch on Kind, never on the rendered text.
type Reason struct {
	Kind ReasonKind

	// Label and Pattern are set for ReasonMissingLabel / ReasonLabelMismatch.
	Label   string
	Pattern string

	// Value holds the offending label value (ReasonLabelMismatch) or the
	// expires label value (ReasonInvalidExpiry, ReasonExpired).
	Value string

	// Detail holds the parse error text for ReasonInvalidExpiry.
	Detail string

	// Created holds the creation date (YYYY-MM-DD) for ReasonExpired.
	Created string

	// Remaining holds the floored time-to-expiry ("2d", "5h") for
	// ReasonNotYetExpired.
	Remaining string
}

// String renders the stable human-readable reason. These strings are part
// of the CLI and notification contract; change them deliberately.
func (r Reason) String() string {
	switch r.Kind {
	case ReasonManagementCluster:
		return "management cluster"
	case ReasonPolicyProtected:
		return "protected by configuration"
	case ReasonGracePeriod:
		return "cluster is within grace period"
	case ReasonMissingExpires:
		return "missing 'expires' label"
	case ReasonMissingLabel:
		return fmt.Sprintf("missing required label '%s'", r.Label)
	case ReasonLabelMismatch:
		return fmt.Sprintf("label '%s' value '%s' does not match pattern '%s'", r.Label, r.Value, r.Pattern)
	case ReasonInvalidExpiry:
		return fmt.Sprintf("invalid 'expires' label format: %s (%s)", r.Value, r.Detail)
	case ReasonExpired:
		return fmt.Sprintf("cluster has expired (created: %s, expires after: %s)", r.Created, r.Value)
	case ReasonNotYetExpired:
		return fmt.Sprintf("cluster has not expired yet (expires in ~%s)", r.Remaining)
	case ReasonNoClusterRef:
		return "no valid CAPI cluster reference"
	case ReasonClusterNotFound:
		return "referenced CAPI cluster not found"
	}
	return "unknown"
}

// Decision is the outcome of evaluating one ClusterRecord against policy.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// Evaluated pairs a record with its decision.
type Evaluated struct {
	Record   ClusterRecord
	Decision Decision
}

// Severity buckets a cluster for notification purposes.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Candidate is a cluster that crossed a notification threshold.
type Candidate struct {
	Record     ClusterRecord
	Reason     Reason
	Severity   Severity
	ElapsedPct float64
	Expiry     time.Time
}

// NotificationData is the flattened payload handed to notifiers and tables.
type NotificationData struct {
	ClusterName   string
	Namespace     string
	Owner         string
	Expires       string
	ElapsedPct    float64
	TimeRemaining string
	Reason        string
}
