package creduce_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccdrover/ccdrover/pkg/infra/creduce"
	"github.com/m-mizutani/gt"
)

func TestReduce(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake-creduce")
	// mimics creduce by rewriting the candidate file in place
	gt.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\nprintf 'int main(){}' > \"$4\"\n"), 0o755))

	r := &creduce.Reducer{Path: fake, Jobs: 1}
	out, err := r.Reduce(context.Background(), "int x; int main() { return x; }", "#!/bin/sh\nexit 0\n")
	gt.NoError(t, err)
	gt.Equal(t, out, "int main(){}")
}

func TestReduceProgress(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake-creduce")
	gt.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\necho 'pass_blank :: 0'\nprintf 'int main(){}' > \"$4\"\n"), 0o755))

	var progress bytes.Buffer
	r := &creduce.Reducer{Path: fake, Jobs: 1, Progress: &progress}
	out, err := r.Reduce(context.Background(), "int x; int main() { return x; }", "#!/bin/sh\nexit 0\n")
	gt.NoError(t, err)
	gt.Equal(t, out, "int main(){}")
	gt.V(t, strings.Contains(progress.String(), "pass_blank")).Equal(true)
}
