package plugins

// Record is a descriptor taking part in one resolution pass. The descriptor is
// never modified; only the status and reason move, and only forward.
type Record struct {
	desc   *Descriptor
	status Status
	reason string
}

// NewRecord wraps a descriptor in a record in the discovered state
func NewRecord(desc *Descriptor) *Record {
	if desc == nil {
		desc = &Descriptor{}
	}
	return &Record{desc: desc, status: StatusDiscovered}
}

// NewRecords wraps every descriptor, preserving order
func NewRecords(descs []*Descriptor) []*Record {
	records := make([]*Record, 0, len(descs))
	for _, d := range descs {
		records = append(records, NewRecord(d))
	}
	return records
}

// ID returns the plugin id (may be empty for malformed descriptors)
func (r *Record) ID() string { return r.desc.ID }

// Descriptor returns the underlying descriptor
func (r *Record) Descriptor() *Descriptor { return r.desc }

// Status returns the current lifecycle status
func (r *Record) Status() Status { return r.status }

// Reason explains the last failing transition, empty for healthy records
func (r *Record) Reason() string { return r.reason }

// Edges returns the record's declared dependency edges
func (r *Record) Edges() []Edge { return r.desc.Edges() }

// Transition moves the record to next, recording reason. Backward or
// sideways moves return ErrInvalidTransition and leave the record unchanged.
func (r *Record) Transition(next Status, reason string) error {
	if !r.status.CanTransition(next) {
		return transitionError(r.desc.ID, r.status, next)
	}
	r.status = next
	if reason != "" {
		r.reason = reason
	}
	return nil
}

// RecordInfo is the serializable view of a record
type RecordInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Version         string   `json:"version,omitempty"`
	Vendor          string   `json:"vendor,omitempty"`
	Category        string   `json:"category,omitempty"`
	Depends         []string `json:"depends,omitempty"`
	OptionalDepends []string `json:"optional_depends,omitempty"`
	SinceBuild      string   `json:"since_build,omitempty"`
	UntilBuild      string   `json:"until_build,omitempty"`
	CodeRoots       []string `json:"code_roots,omitempty"`
	SharedLoader    bool     `json:"shared_loader,omitempty"`
	Bundled         bool     `json:"bundled,omitempty"`
	Status          Status   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
}

// Info returns a copy of the record suitable for JSON output
func (r *Record) Info() RecordInfo {
	d := r.desc
	return RecordInfo{
		ID:              d.ID,
		Name:            d.Name,
		Version:         d.Version,
		Vendor:          d.Vendor,
		Category:        d.Category,
		Depends:         append([]string(nil), d.Depends...),
		OptionalDepends: append([]string(nil), d.OptionalDepends...),
		SinceBuild:      d.SinceBuild,
		UntilBuild:      d.UntilBuild,
		CodeRoots:       append([]string(nil), d.CodeRoots...),
		SharedLoader:    d.SharedLoader,
		Bundled:         d.Bundled,
		Status:          r.status,
		Reason:          r.reason,
	}
}
