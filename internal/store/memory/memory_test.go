package memory

import (
	"testing"

	"github.com/xob0t/ProfileStencil/internal/core"
	"github.com/xob0t/ProfileStencil/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store { return New(nil) })
}
