package planfile

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Ning0612/drivesync/internal/domain"
)

// codec converts between version documents and one concrete version type
type codec[V domain.Version] struct {
	check     func(VersionDoc) error
	toVersion func(VersionDoc) V
	toDoc     func(V) VersionDoc
}

var dirCodec = codec[domain.DirectoryVersion]{
	check: func(d VersionDoc) error {
		if !strings.HasPrefix(d.Path, "/") {
			return fmt.Errorf("%w: directory path %q must start with '/'", domain.ErrPlanInvalid, d.Path)
		}
		return nil
	},
	toVersion: func(d VersionDoc) domain.DirectoryVersion {
		return domain.DirectoryVersion{Path: d.Path, Checksum: d.Checksum}
	},
	toDoc: func(v domain.DirectoryVersion) VersionDoc {
		return VersionDoc{Path: v.Path, Checksum: v.Checksum}
	},
}

var fileCodec = codec[domain.FileVersion]{
	check: func(d VersionDoc) error {
		if d.Name == "" || strings.Contains(d.Name, "/") {
			return fmt.Errorf("%w: invalid file name %q", domain.ErrPlanInvalid, d.Name)
		}
		return nil
	},
	toVersion: func(d VersionDoc) domain.FileVersion {
		return domain.FileVersion{Name: d.Name, Checksum: d.Checksum}
	},
	toDoc: func(v domain.FileVersion) VersionDoc {
		return VersionDoc{Name: v.Name, Checksum: v.Checksum}
	},
}

func (c codec[V]) versions(docs []VersionDoc) []V {
	out := make([]V, 0, len(docs))
	for _, d := range docs {
		out = append(out, c.toVersion(d))
	}
	return out
}

func (c codec[V]) version(d *VersionDoc) (*V, error) {
	if d == nil {
		return nil, nil
	}
	if err := c.check(*d); err != nil {
		return nil, err
	}
	v := c.toVersion(*d)
	return &v, nil
}

func (c codec[V]) doc(v *V) *VersionDoc {
	if v == nil {
		return nil
	}
	d := c.toDoc(*v)
	return &d
}

// decodePlan converts both lists and checks IDs are unique and dependencies resolve
func decodePlan[V domain.Version](c codec[V], doc PlanDoc) (domain.Plan[V], error) {
	var plan domain.Plan[V]
	seen := make(map[uuid.UUID]bool)

	for _, side := range []struct {
		name string
		docs []ActionDoc
		out  *[]domain.Action[V]
	}{
		{"for_server", doc.ForServer, &plan.ForServer},
		{"for_client", doc.ForClient, &plan.ForClient},
	} {
		for i, d := range side.docs {
			a, err := decodeAction(c, d)
			if err != nil {
				return domain.Plan[V]{}, fmt.Errorf("%s[%d]: %w", side.name, i, err)
			}
			if seen[a.ID] {
				return domain.Plan[V]{}, fmt.Errorf("%s[%d]: %w: duplicate id %s", side.name, i, domain.ErrPlanInvalid, a.ID)
			}
			seen[a.ID] = true
			*side.out = append(*side.out, a)
		}
	}

	for _, list := range [][]domain.Action[V]{plan.ForServer, plan.ForClient} {
		for _, a := range list {
			if a.HasDependency() && !seen[a.DependsOn] {
				return domain.Plan[V]{}, fmt.Errorf("%w: %s depends on unknown action %s", domain.ErrPlanInvalid, a, a.DependsOn)
			}
		}
	}

	return plan, nil
}

func decodeAction[V domain.Version](c codec[V], d ActionDoc) (domain.Action[V], error) {
	kind := domain.ActionKind(strings.ToLower(d.Kind))
	if !kind.IsValid() {
		return domain.Action[V]{}, fmt.Errorf("%w: %q", domain.ErrUnknownActionKind, d.Kind)
	}

	id, err := parseID(d.ID)
	if err != nil {
		return domain.Action[V]{}, err
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	dep, err := parseID(d.DependsOn)
	if err != nil {
		return domain.Action[V]{}, err
	}

	v, err := c.version(d.Version)
	if err != nil {
		return domain.Action[V]{}, err
	}
	nv, err := c.version(d.NewVersion)
	if err != nil {
		return domain.Action[V]{}, err
	}
	if v == nil && nv == nil {
		return domain.Action[V]{}, fmt.Errorf("%w: %s action without versions", domain.ErrPlanInvalid, kind)
	}

	a := domain.Action[V]{ID: id, Kind: kind, Version: v, NewVersion: nv, DependsOn: dep}

	if d.Cause != nil {
		cmp := &domain.Comparison[V]{}
		if cmp.Original, err = c.version(d.Cause.Original); err != nil {
			return domain.Action[V]{}, err
		}
		if cmp.Client, err = c.version(d.Cause.Client); err != nil {
			return domain.Action[V]{}, err
		}
		if cmp.Server, err = c.version(d.Cause.Server); err != nil {
			return domain.Action[V]{}, err
		}
		a.Comparison = cmp
	}

	if p := d.Params; p != nil {
		for i, n := range p.NestedRemoves {
			nested, err := decodeAction(c, n)
			if err != nil {
				return domain.Action[V]{}, fmt.Errorf("nested_removes[%d]: %w", i, err)
			}
			a.Params.NestedRemoves = append(a.Params.NestedRemoves, nested)
		}
		if a.Params.SourceVersion, err = c.version(p.SourceVersion); err != nil {
			return domain.Action[V]{}, err
		}
		a.Params.SourceFolder = p.SourceFolder
		a.Params.NoPayload = p.NoPayload
		if p.Inline != nil {
			data, err := base64.StdEncoding.DecodeString(*p.Inline)
			if err != nil {
				return domain.Action[V]{}, fmt.Errorf("%w: inline payload: %v", domain.ErrPlanInvalid, err)
			}
			a.Params.Inline = data
			a.Params.HasInline = true
		}
	}

	return a, nil
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", domain.ErrPlanInvalid, s)
	}
	return id, nil
}

func encodePlan[V domain.Version](c codec[V], p domain.Plan[V]) PlanDoc {
	doc := PlanDoc{
		ForServer: make([]ActionDoc, 0, len(p.ForServer)),
		ForClient: make([]ActionDoc, 0, len(p.ForClient)),
	}
	for _, a := range p.ForServer {
		doc.ForServer = append(doc.ForServer, encodeAction(c, a))
	}
	for _, a := range p.ForClient {
		doc.ForClient = append(doc.ForClient, encodeAction(c, a))
	}
	return doc
}

func encodeAction[V domain.Version](c codec[V], a domain.Action[V]) ActionDoc {
	d := ActionDoc{
		ID:         a.ID.String(),
		Kind:       string(a.Kind),
		Version:    c.doc(a.Version),
		NewVersion: c.doc(a.NewVersion),
	}
	if a.HasDependency() {
		d.DependsOn = a.DependsOn.String()
	}
	if a.Comparison != nil {
		d.Cause = &CauseDoc{
			Original: c.doc(a.Comparison.Original),
			Client:   c.doc(a.Comparison.Client),
			Server:   c.doc(a.Comparison.Server),
		}
	}

	p := a.Params
	if len(p.NestedRemoves) == 0 && p.SourceVersion == nil && p.SourceFolder == "" && !p.HasInline && !p.NoPayload {
		return d
	}
	params := &ParamsDoc{
		SourceVersion: c.doc(p.SourceVersion),
		SourceFolder:  p.SourceFolder,
		NoPayload:     p.NoPayload,
	}
	for _, n := range p.NestedRemoves {
		params.NestedRemoves = append(params.NestedRemoves, encodeAction(c, n))
	}
	if p.HasInline {
		inline := base64.StdEncoding.EncodeToString(p.Inline)
		params.Inline = &inline
	}
	d.Params = params
	return d
}

// assignIDs gives every action without an ID a fresh one so repeated decodes agree
func assignIDs(doc *PlanDoc) {
	for _, list := range [][]ActionDoc{doc.ForServer, doc.ForClient} {
		assignListIDs(list)
	}
}

func assignListIDs(list []ActionDoc) {
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = uuid.NewString()
		}
		if list[i].Params != nil {
			assignListIDs(list[i].Params.NestedRemoves)
		}
	}
}
