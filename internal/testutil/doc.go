// Package testutil provides shared test helpers: a fake ComfyUI server
// covering the endpoints comfycam talks to, plus image and graph fixtures.
// Production code must not import this package.
package testutil
