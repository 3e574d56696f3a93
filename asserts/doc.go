// Package asserts provides test assertions built on testify, including
// assertions on errors returned or panicked by synchronous and
// asynchronous functions.
package asserts
