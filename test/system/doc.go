// Package system holds live checks against a real z/OSMF. They run with
// `-tags system` and read the target from ZOSMF_TEST_PROPERTIES.
package system
