package sync

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/foldersync/ci/util"
	"github.com/sidkik/foldersync/pkg/config"
)

// Test runs the end-to-end mirroring tests against the binary.
func Test(t *testing.T, helper *util.TestHelper) {
	t.Run("FileChange", func(t *testing.T) {
		testFileChange(t, helper, false)
	})
	t.Run("FileChangeWatch", func(t *testing.T) {
		testFileChange(t, helper, true)
	})
	t.Run("Once", func(t *testing.T) {
		testOnce(t, helper)
	})
	t.Run("ConfigFile", func(t *testing.T) {
		testConfigFile(t, helper)
	})
}

func testFileChange(t *testing.T, helper *util.TestHelper, watch bool) {
	testCtx, cancelTest := context.WithCancel(context.Background())
	defer cancelTest()

	refFile := randomFile("dir/test-file")
	changedContents := refFile.WithContents("changed contents").
		WithModTime(refFile.modTime.Add(time.Minute))
	changedModTime := refFile.WithModTime(refFile.modTime.Add(2 * time.Minute))
	changedMode := refFile.WithMode(os.FileMode(0600)).
		WithModTime(refFile.modTime.Add(3 * time.Minute))

	tests := []struct {
		name   string
		change fsOp
	}{
		{name: "ChangeContents", change: createFile(changedContents)},
		{name: "ChangeModTime", change: createFile(changedModTime)},
		{name: "ChangeMode", change: createFile(changedMode)},
		{name: "AddNestedDir", change: createFile(randomFile("dir/new/deeper/file"))},
		{name: "AddEmptyDir", change: makeDir("empty/dir")},
		{name: "RemoveFile", change: removeFile(refFile.path)},
		{name: "RemoveDir", change: removeFile("dir")},
	}

	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	require.NoError(t, createFile(refFile)(fs))
	require.NoError(t, createDestinationFile(randomFile("stale/file"))(fs))

	args := []string{"run", fs.source, fs.destination, fs.logFile, "1"}
	if watch {
		args = append(args, "--watch")
	}
	runErr, err := helper.Start(testCtx, args...)
	require.NoError(t, err, "start foldersync run")
	go func() {
		if err := <-runErr; err != nil {
			t.Errorf("foldersync run: %s", err)
		}
	}()

	waitCtx, cancelWait := context.WithTimeout(testCtx, time.Minute)
	defer cancelWait()
	require.NoError(t, helper.WaitUntilSynced(waitCtx, fs.source, fs.destination))

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			require.NoError(t, test.change(fs))

			waitCtx, cancelWait := context.WithTimeout(testCtx, time.Minute)
			defer cancelWait()
			assert.NoError(t, helper.WaitUntilSynced(waitCtx, fs.source, fs.destination))
		})
	}

	assert.True(t, util.LogContains(fs.logFile, "Removed file"))
}

func testOnce(t *testing.T, helper *util.TestHelper) {
	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	for i := 0; i < 10; i++ {
		require.NoError(t, createFile(randomFile("dir"+strconv.Itoa(i%3)+"/file"+strconv.Itoa(i)))(fs))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	output, err := helper.Run(ctx, "run", "--once", fs.source, fs.destination, fs.logFile, "60")
	require.NoError(t, err, string(output))

	diff, err := util.DiffTrees(fs.source, fs.destination)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func testConfigFile(t *testing.T, helper *util.TestHelper) {
	fs, err := newMockFs()
	require.NoError(t, err)
	defer fs.cleanup()

	require.NoError(t, createFile(randomFile("file"))(fs))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	configPath := fs.root + "/" + config.DefaultDaemonConfigName
	output, err := helper.Run(ctx, "config", configPath,
		"--source", "source",
		"--destination", "destination",
		"--log-file", "foldersync.log",
		"--interval", "60")
	require.NoError(t, err, string(output))

	output, err = helper.Run(ctx, "config", "get-destination", configPath)
	require.NoError(t, err, string(output))
	assert.Equal(t, fs.destination+"\n", string(output))

	output, err = helper.Run(ctx, "run", "--once", "--config", fs.root)
	require.NoError(t, err, string(output))

	diff, err := util.DiffTrees(fs.source, fs.destination)
	require.NoError(t, err)
	assert.Empty(t, diff)
	assert.True(t, util.LogContains(fs.logFile, "Created file"))
}
