// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing conversations, scripted backend
// responses, embedders and hooks. They are not intended for production usage.
package testutil
