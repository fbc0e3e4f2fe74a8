package finding

// ExtendChain appends newCode to a parent traceability chain, producing the
// chain for a newly created record. The parent chain is copied, never mutated.
//
// If the parent chain is empty or unknown (the record has no traceable
// parent), the result is a single-element chain containing only newCode.
//
// Pure function: no side effects, no I/O.
func ExtendChain(parentChain []string, newCode string) []string {
	chain := make([]string, 0, len(parentChain)+1)
	chain = append(chain, parentChain...)
	chain = append(chain, newCode)
	return chain
}
