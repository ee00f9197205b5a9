// Package cleaning implements the fixed data-cleaning recipe applied to an
// uploaded table.
//
// Clean runs nine steps in a fixed order, each operating on the output of
// the previous one:
//
//  1. duplicate-row removal
//  2. text trimming and optional lowercasing
//  3. optional removal of all-missing columns
//  4. missing-value handling (fill, drop or leave)
//  5. numeric coercion of the originally text columns
//  6. title casing of the remaining text columns
//  7. datetime inference on date-like column names
//  8. pruning of empty and constant columns
//  9. outlier removal (IQR fence) or a z-score diagnostic
//
// The function works on a deep copy of its input and has no side effects.
// Every step that changes the table appends an action entry to the returned
// log; observations that change nothing are recorded as notes or warnings so
// callers can tell the two apart.
//
// A column whose values fail numeric or datetime coercion never aborts the
// run: the column keeps its text form (or its unparseable cells become
// missing) and the log says what happened.
package cleaning
