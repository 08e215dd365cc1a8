package graph

// Kind classifies a build-graph node. Only KindBuild nodes take part in
// failure propagation; the remaining kinds are handled by collaborators.
type Kind int

const (
	KindBuild   Kind = iota // ordinary build node (no node-type tag)
	KindMerge               // "merger" node
	KindTest                // "test" node
	KindUnknown             // any other node-type tag
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindMerge:
		return "merge"
	case KindTest:
		return "test"
	default:
		return "unknown"
	}
}

// KindOf maps a raw node-type tag to a Kind. An empty tag is a build node.
func KindOf(nodeType string) Kind {
	switch nodeType {
	case "":
		return KindBuild
	case "merger":
		return KindMerge
	case "test":
		return KindTest
	default:
		return KindUnknown
	}
}

// TargetProperties carries the module metadata of a user-visible target.
type TargetProperties struct {
	ModuleType string `json:"module_type,omitempty" toml:"module_type"`
	ModuleTag  string `json:"module_tag,omitempty" toml:"module_tag"`
	ModuleDir  string `json:"module_dir,omitempty" toml:"module_dir"`
}

// Node is one entry of a build-graph snapshot.
type Node struct {
	UID      string            `json:"uid" toml:"uid"`
	Deps     []string          `json:"deps,omitempty" toml:"deps"`
	NodeType string            `json:"node-type,omitempty" toml:"node-type"`
	Platform string            `json:"platform,omitempty" toml:"platform"`
	Target   *TargetProperties `json:"target_properties,omitempty" toml:"target_properties"`
}

// Kind returns the node's kind derived from its node-type tag.
func (n *Node) Kind() Kind {
	return KindOf(n.NodeType)
}

// IsModule reports whether the node carries module metadata. A node whose
// module_type is present but empty is not a module.
func (n *Node) IsModule() bool {
	return n.Target != nil && n.Target.ModuleType != ""
}

// Name returns the target name of a module node, or "" for other nodes.
func (n *Node) Name() string {
	if n.Target == nil {
		return ""
	}
	return n.Target.ModuleDir
}

// ModuleTag returns the module tag, or "" when the node has none.
func (n *Node) ModuleTag() string {
	if n.Target == nil {
		return ""
	}
	return n.Target.ModuleTag
}
