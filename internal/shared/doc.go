// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and small table fixtures:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    table := testutil.CleanSalesTable(t)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "dataset cleaned")
//	}
package shared
