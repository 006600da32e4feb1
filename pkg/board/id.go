package board

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDSource issues board-unique entity IDs of the form "<site>:<n>". The
// site prefix namespaces every client, so two clients creating entities at
// the same instant can never collide the way wall-clock IDs do.
type IDSource struct {
	site string
	n    atomic.Uint64
}

func NewIDSource() *IDSource {
	return &IDSource{site: uuid.NewString()[:8]}
}

// NewIDSourceWithSite pins the site prefix; useful in tests.
func NewIDSourceWithSite(site string) *IDSource {
	return &IDSource{site: site}
}

// Next returns a fresh ID. Safe for concurrent use.
func (s *IDSource) Next() string {
	return fmt.Sprintf("%s:%d", s.site, s.n.Add(1))
}

// Site returns the namespace prefix of this source.
func (s *IDSource) Site() string {
	return s.site
}
