package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Account is the persisted record for a user, stored as
// users/<name>/user.json. The username doubles as the directory name, so
// it is immutable after creation.
type Account struct {
	Username    string `json:"username"`
	Password    string `json:"password"` // PHC-encoded argon2id hash
	Description string `json:"description"`
	Private     bool   `json:"private"`
	Admin       bool   `json:"admin"`
}

// RepoMeta is the persisted record for a repository, stored as
// users/<owner>/repos/<name>/repo.json next to the bare repo.git directory.
type RepoMeta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

// KeySize is the length of the cookie signing key in bytes.
const KeySize = 64

// SigningKey is the shared secret handed to the session-cookie layer. It
// serializes as a 128-character hex string.
type SigningKey [KeySize]byte

func (k SigningKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(k[:]))
}

func (k *SigningKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) != KeySize*2 {
		return fmt.Errorf("signing key must be %d hex characters, got %d", KeySize*2, len(s))
	}
	_, err := hex.Decode(k[:], []byte(s))
	return err
}

// Settings is the singleton record at the data root. Tor and Telemetry are
// nil when unset.
type Settings struct {
	Key       SigningKey `json:"key"`
	Tor       *Tor       `json:"tor"`
	Telemetry *Telemetry `json:"telemetry"`
}

type Tor struct {
	Onion string `json:"onion"`
}

// Telemetry describes the OTLP trace endpoint the server exports to.
type Telemetry struct {
	Endpoint string `json:"endpoint"`
	Insecure bool   `json:"insecure,omitempty"`
}

// FileKind classifies a top-level tree entry. Directories order before
// files in listings.
type FileKind int

const (
	FileKindDirectory FileKind = iota
	FileKindFile
)

func (k FileKind) String() string {
	if k == FileKindDirectory {
		return "directory"
	}
	return "file"
}

func (k FileKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// RepoFile is one entry of a directory listing.
type RepoFile struct {
	Name string   `json:"name"`
	Kind FileKind `json:"kind"`
}

// NodeKind tags the three shapes a resolved tree path can take. Tree
// entries of any other git object kind (submodule links) are filtered out
// before a node is built, never surfaced as a fourth kind.
type NodeKind string

const (
	NodeDirectory NodeKind = "directory"
	NodeText      NodeKind = "text"
	NodeBinary    NodeKind = "binary"
)

// TreeNode is a resolved path inside a branch: a directory listing, a
// decoded text blob, or a binary blob carrying only its size. It is
// derived per request, never persisted.
type TreeNode struct {
	Name    string     `json:"name"`
	Kind    NodeKind   `json:"kind"`
	Entries []RepoFile `json:"entries,omitempty"` // directory
	Content string     `json:"content,omitempty"` // text
	Size    int64      `json:"size,omitempty"`    // binary
}
