package usecase

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestEmptyMarkerBodies(t *testing.T) {
	code := strings.Join([]string{
		"void DCEMarker0_(void);",
		"void DCEMarker12_(void);",
		"int main() {",
		"  DCEMarker0_();",
		"  return 0;",
		"}",
	}, "\n")

	got := emptyMarkerBodies(code, "DCEMarker")

	t.Run("declarations become empty definitions", func(t *testing.T) {
		gt.V(t, strings.Contains(got, "void DCEMarker0_(void){}")).Equal(true)
		gt.V(t, strings.Contains(got, "void DCEMarker12_(void){}")).Equal(true)
		gt.V(t, strings.Contains(got, "void DCEMarker0_(void);")).Equal(false)
	})

	t.Run("call sites and other lines untouched", func(t *testing.T) {
		gt.V(t, strings.Contains(got, "  DCEMarker0_();")).Equal(true)
		gt.V(t, strings.Contains(got, "int main() {")).Equal(true)
	})

	t.Run("foreign prefixes are left alone", func(t *testing.T) {
		other := emptyMarkerBodies("void OtherMarker0_(void);", "DCEMarker")
		gt.Equal(t, other, "void OtherMarker0_(void);")
	})
}
