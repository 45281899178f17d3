// Package secure decides where decrypted material may live and how it
// is destroyed.
//
// It provides the secure temp-dir locator (RAM-backed storage when the
// host has it), best-effort memory locking, secure file erasure, scoped
// ephemeral files whose destruction is guaranteed on every exit path,
// and a memguard-backed buffer for plaintext that never touches a file.
//
// Memory locking and RAM-dir location are optimizations: they can fail
// without failing the surrounding operation. Erasure is not optional:
// a leaked ephemeral plaintext file is a defect, not an edge case.
package secure
