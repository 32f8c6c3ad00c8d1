// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals

import "github.com/holomush/armour/internal/policy/types"

// Element types used to tag empty/option collections so their static type
// survives even when no element is present to infer it from (spec.md §4.F).
var (
	strTypElem   = types.Str
	i64TypElem   = types.I64
	labelTypElem = types.Label
	ipTypElem    = types.IPAddr
	strPairTypElem = types.Tuple(types.Str, types.Str)
)
