// Package rpc wires the JSON-RPC/LSP transport: Content-Length framing via
// sourcegraph/jsonrpc2, typed payloads via sourcegraph/go-lsp, and the
// custom $/addBuildDirs extension this language server adds on top.
package rpc

import lsp "github.com/sourcegraph/go-lsp"

// BuildDirsToSet is one entry of the $/addBuildDirs notification payload.
type BuildDirsToSet struct {
	BaseURI   lsp.DocumentURI `json:"baseUri"`
	BuildDirs []string        `json:"buildDirs"`
}

// AddBuildDirsParams is the payload of the $/addBuildDirs notification.
type AddBuildDirsParams struct {
	BuildDirsToSet []BuildDirsToSet `json:"buildDirsToSet"`
}

// ExperimentalCapabilities extends lsp.ServerCapabilities with the
// experimental.addBuildDirs flag go-lsp's struct set has no field for.
type ExperimentalCapabilities struct {
	AddBuildDirs struct {
		Supported bool `json:"supported"`
	} `json:"addBuildDirs"`
}

// ServerCapabilities embeds lsp.ServerCapabilities and adds the
// experimental block, marshaled inline by encoding/json's embedding rules.
type ServerCapabilities struct {
	lsp.ServerCapabilities
	Experimental ExperimentalCapabilities `json:"experimental"`
	PositionEncoding string `json:"positionEncoding"`
}
