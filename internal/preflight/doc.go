// Package preflight provides readiness checks for the directories, database,
// credentials, and render service that Lectern depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and refuses to enter the
//     processing loop when a required check fails, so a misconfigured install
//     fails loudly instead of burning through jobs.
//   - The CLI "lectern status" command renders the same results so operators
//     see which piece of the environment is broken.
//
// Optional checks (notifications) report as passed when the feature is
// disabled; required checks fail when their subject is missing.
package preflight
