// Package hashfunc gives every hash algorithm and parameter set a stable,
// content-derived identity.
//
// Algorithms are resolved by qualified name through a static Registry
// populated at startup. An Identity binds one registered algorithm to its
// positional and keyword parameters; its ID is a BLAKE2b fingerprint of the
// canonical form of (name, args, kwargs) and is the only basis for equality.
// Identities serialize to the Record stored in the hash database registry
// and are reconstructed from it with Deserialize.
package hashfunc
