// Package preflight provides readiness checks for the directories, stores,
// and extraction engines that inkwell depends on.
//
// These checks run in two contexts:
//   - The daemon serves them on /api/health so operators and load balancers
//     can see at a glance why a node is refusing work.
//   - The CLI "inkwell status" command renders the same checks for a quick
//     local diagnosis.
//
// Each check is gated by its config value -- unconfigured endpoints are skipped.
package preflight
