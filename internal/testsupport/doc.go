// Package testsupport provides helpers shared across package tests.
package testsupport
