package usecase

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestNormalizeFileDirective(t *testing.T) {
	asm := "\t.file\t\"input2847561.c\"\n\t.text\n\t.globl\tmain\n"
	out := normalizeFileDirective(asm)
	gt.True(t, strings.Contains(out, `.file	"case.c"`))
	gt.True(t, !strings.Contains(out, "input2847561"))

	t.Run("no directive is a no-op", func(t *testing.T) {
		asm := "\t.text\n"
		gt.Equal(t, normalizeFileDirective(asm), asm)
	})
}

func TestRenameMarkers(t *testing.T) {
	code := `void DCEMarker0_(void);
void DCEMarker1_(void);
int main(void) {
    DCEMarker0_();
    DCEMarker1_();
}
`
	out := renameMarkers(code, "DCEMarker0_")
	gt.True(t, strings.Contains(out, "foo();"))
	gt.True(t, strings.Contains(out, "bar1_();"))
	gt.True(t, !strings.Contains(out, "DCEMarker"))
}
