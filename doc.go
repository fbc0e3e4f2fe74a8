// Package sdk assembles the Halcyon quality-management finding engine.
//
// A finding is a recorded non-conformance or improvement opportunity moving
// through three phases: detection (record the issue and its evidence),
// treatment (analyze the root cause and decide on action), and control
// (verify effectiveness and close). The subpackages carry the pieces:
//
//   - finding: the Finding aggregate, its enums, validation, and the
//     named state transitions
//   - store: the Redis-backed document store, the finding repository, and
//     the audit/action adapters
//   - sequence: atomic allocation of human-readable finding numbers
//     (PREFIX-YYYY-NNNN), scoped per prefix and year
//   - lifecycle: the workflow service, action counter synchronizer, and
//     recurrence analyzer
//   - directory: the narrow interfaces findings use to reach the Audit and
//     Action aggregates
//
// The Engine in this package wires them together from configuration:
//
//	cfg, err := sdk.LoadConfig("halcyon.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	engine, err := sdk.NewEngine(sdk.WithConfig(cfg))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Shutdown(context.Background())
//
//	f, err := engine.CreateFinding(ctx, lifecycle.CreateInput{
//		Title:       "Calibration record missing",
//		Description: "No calibration record for gauge G-17",
//		Evidence:    "Audit sampling of the calibration log",
//		Source:      finding.SourceAudit,
//		SourceID:    auditID,
//		Severity:    finding.SeverityMajor,
//		Category:    "calibration",
//	}, userID)
//
// Engine methods return *Error values whose Kind the caller can branch on
// (validation, not_found, conflict, and so on).
package sdk
