/*
Package builder is responsible for the construction of the static constraint
graph. It acts as the bridge between the concept tree (the 'concept' package)
and the constraint kinds known to the 'registry', and writes its result into a
topologystore.Store for the scheduler to consume.

The graph construction is a per-kind process, run in requirement order:

 1. Root Evaluation: every concept of the kind's root type is evaluated
    independently. The kind's predicate decides whether it applies; if it does,
    the already-built instances of every required kind are filtered down to the
    ones attached inside the root's family tree (its ancestors and descendants)
    or to roots the kind names explicitly. Roots are evaluated concurrently,
    since no state is shared between roots of the same kind.

 2. Insertion: the resulting instances are written to the topology store in
    tree order from a single goroutine, together with their dependency edges.
    A second instance of the same kind on the same root is rejected.

 3. Verification: once a kind is processed, all of its required kinds must
    have been processed before it.

Skipped roots and kinds without matching concepts are normal and only logged.
*/
package builder
