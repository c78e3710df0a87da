// Package core contains the canonical webhook delivery domain: entities,
// store contracts, and orchestration logic (dispatch, execution, retry
// scheduling, auto-disable). Lower-level adapters must depend on this
// package; core must not depend on storage or queue adapters.
package core
