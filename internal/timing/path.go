package timing

import (
	"cmp"
	"encoding/binary"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Path is an immutable node naming a full call chain: its own PathKey plus an
// optional parent. Paths are compared structurally, so two chains built
// independently from the same keys are Equal and share a Hash.
//
// Each node also memoizes the children handed out by Child. The memo is a
// performance aid only; it never takes part in equality, hashing or
// serialization and starts empty on every reconstructed node.
type Path struct {
	key    PathKey
	parent *Path
	depth  int
	hash   uint64

	children sync.Map // PathKey -> *Path
}

// NewRootPath returns a path with no parent.
func NewRootPath(key PathKey) *Path {
	return newPath(key, nil)
}

// NewPath builds the chain keys[0] -> ... -> keys[n-1] and returns the leaf.
// Nodes are freshly allocated; no child cache is consulted. It returns nil for
// an empty key list.
func NewPath(keys ...PathKey) *Path {
	var p *Path
	for _, k := range keys {
		p = newPath(k, p)
	}
	return p
}

func newPath(key PathKey, parent *Path) *Path {
	p := &Path{key: key, parent: parent}
	if parent != nil {
		p.depth = parent.depth + 1
	}
	p.hash = hashNode(key, parent)
	return p
}

func hashNode(key PathKey, parent *Path) uint64 {
	var buf [8]byte
	d := xxhash.New()
	_, _ = d.WriteString(key.Name)
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(key.SequenceID)))
	_, _ = d.Write(buf[:])
	var flags byte
	if key.Classified {
		flags |= 1
	}
	if key.ShouldRecord {
		flags |= 2
	}
	if parent != nil {
		flags |= 4
		binary.LittleEndian.PutUint64(buf[:], parent.hash)
		_, _ = d.Write(buf[:])
	}
	_, _ = d.Write([]byte{flags})
	return d.Sum64()
}

// Child returns the child of p identified by key. Repeated calls with an equal
// key return the same *Path; concurrent callers racing on a new key all
// observe the single instance that won the insert.
func (p *Path) Child(key PathKey) *Path {
	if c, ok := p.children.Load(key); ok {
		return c.(*Path)
	}
	c, _ := p.children.LoadOrStore(key, newPath(key, p))
	return c.(*Path)
}

// Equal reports whether p and other describe the same chain.
func (p *Path) Equal(other *Path) bool {
	for {
		if p == other {
			return true
		}
		if p == nil || other == nil {
			return false
		}
		if p.hash != other.hash || p.depth != other.depth || p.key != other.key {
			return false
		}
		p, other = p.parent, other.parent
	}
}

// Hash returns the value computed at construction.
func (p *Path) Hash() uint64 { return p.hash }

func (p *Path) Key() PathKey       { return p.key }
func (p *Path) Name() string       { return p.key.Name }
func (p *Path) SequenceID() int    { return p.key.SequenceID }
func (p *Path) Classified() bool   { return p.key.Classified }
func (p *Path) ShouldRecord() bool { return p.key.ShouldRecord }
func (p *Path) Parent() *Path      { return p.parent }

// Depth is the number of ancestors; a root has depth 0.
func (p *Path) Depth() int { return p.depth }

// Keys returns the chain from the root down to p.
func (p *Path) Keys() []PathKey {
	keys := make([]PathKey, p.depth+1)
	for n := p; n != nil; n = n.parent {
		keys[n.depth] = n.key
	}
	return keys
}

// Rebuild returns a structurally equal copy of p whose nodes carry empty
// child caches.
func (p *Path) Rebuild() *Path {
	return NewPath(p.Keys()...)
}

// String renders the chain for diagnostics, e.g. "job(0,false)/stage1(0,false)".
func (p *Path) String() string {
	var b strings.Builder
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(k.Name)
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(k.SequenceID))
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(k.Classified))
		b.WriteByte(')')
	}
	return b.String()
}

// ComparePaths orders paths by their root-to-leaf keys. A path sorts before
// its descendants.
func ComparePaths(a, b *Path) int {
	ka, kb := a.Keys(), b.Keys()
	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := compareKeys(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(ka), len(kb))
}

func compareKeys(a, b PathKey) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SequenceID, b.SequenceID); c != 0 {
		return c
	}
	if a.Classified != b.Classified {
		if a.Classified {
			return 1
		}
		return -1
	}
	if a.ShouldRecord != b.ShouldRecord {
		if a.ShouldRecord {
			return 1
		}
		return -1
	}
	return 0
}

// MarshalJSON encodes the path as its root-to-leaf key list.
func (p *Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Keys())
}

// UnmarshalJSON rebuilds the chain from a key list. It is meant for a zero
// Path; any previously memoized children are dropped.
func (p *Path) UnmarshalJSON(data []byte) error {
	var keys []PathKey
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.New("timing: empty path")
	}
	var parent *Path
	if len(keys) > 1 {
		parent = NewPath(keys[:len(keys)-1]...)
	}
	leaf := keys[len(keys)-1]
	p.key = leaf
	p.parent = parent
	p.depth = 0
	if parent != nil {
		p.depth = parent.depth + 1
	}
	p.hash = hashNode(leaf, parent)
	p.children.Clear()
	return nil
}
