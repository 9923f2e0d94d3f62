// Package schedule runs a caving production plan period by period.
//
// For every target item the Engine:
//  1. incorporates the next columns of the ranking,
//  2. caps every live column with the speed ramp curve,
//  3. apportions the period target across columns with an Apportioner,
//  4. extracts from every active column and collects the records.
//
// Depleted columns stay active and keep reporting their terminal state.
// Apportioners are pluggable and can be selected by name through
// NewApportioner:
//   - equal: equal split, unused share redistributed to columns with spare cap
//   - proportional: split weighted by each column's cap
//   - greedy: fill columns to their cap in incorporation order
//   - lp: linear program preferring early columns, falls back to equal
//
// When the aggregate cap cannot cover the target, the shortfall is attributed
// to the columns that reached their cap and reported through their records.
package schedule
