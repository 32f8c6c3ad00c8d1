// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package rpcclient

import "strings"

// toFullMethod turns a policy-level "Service::method" qualified name into
// the gRPC full method string Invoke expects. Ingress/Egress are excluded
// since those belong to internal/metadataactor, never this collaborator.
func toFullMethod(qualifiedName string) (string, bool) {
	service, method, found := strings.Cut(qualifiedName, "::")
	if !found || service == "" || method == "" {
		return "", false
	}
	if service == "Ingress" || service == "Egress" {
		return "", false
	}
	return "/armour.external." + service + "/" + method, true
}
