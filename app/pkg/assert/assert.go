package assert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sort"

	"farmer/app/pkg/shutdown"
	"farmer/app/pkg/utils/mapx"
)

// AssertData carries context that is printed along with a failed assertion.
type AssertData mapx.BasicMap

var ctxCancel context.CancelFunc = nil

// This function should be called as soon as the root context is created,
// so a failed startup invariant also stops any worker already running.
func LoadCtxCancel(cancel context.CancelFunc) {
	ctxCancel = cancel
}

func runAssert(msg string, dataArgs ...AssertData) {
	merged := mapx.BasicMap{"msg": msg}
	for _, data := range dataArgs {
		duplicateKeys := mapx.CopyNoDuplicates((mapx.BasicMap)(data), merged)
		for _, dk := range duplicateKeys {
			fmt.Fprintf(os.Stderr, "WARNING: Duplicate key %s. Renaming to %s\n", dk, dk+"_")
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, 2*len(keys)+2)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, merged[k]))
	}
	attrs = append(attrs, slog.String("stack", string(debug.Stack())))

	if ctxCancel != nil {
		ctxCancel()
	}
	slog.Error("ASSERT", attrs...)
	shutdown.Shutdown()
}

func Assert(truth bool, msg string, dataArgs ...AssertData) {
	if !truth {
		runAssert(msg, dataArgs...)
	}
}

func NotNil(item any, msg string, dataArgs ...AssertData) {
	if item == nil {
		slog.Error("NotNil#nil encountered")
		runAssert(msg, dataArgs...)
	}
}

func Never(msg string, dataArgs ...AssertData) {
	slog.Error("Never#never encountered")
	runAssert(msg, dataArgs...)
}

func NoError(err error, msg string, dataArgs ...AssertData) {
	if err != nil {
		dataArgs = append(dataArgs, AssertData{"error": err})
		runAssert(msg, dataArgs...)
	}
}
