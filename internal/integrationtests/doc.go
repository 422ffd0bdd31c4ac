// Package integrationtests builds small sites end to end through the app
// with the core stage modules registered.
package integrationtests
