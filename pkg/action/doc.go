// Package action dispatches the side effects attached to dialogue nodes.
//
// Hosts register a Handler per action name; Registry implements ports.ActionInvoker
// and is what an editor or runtime calls when a node is visited.
package action
