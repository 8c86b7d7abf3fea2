/*

Package rowstream -> streaming rows out of databases, one entity at a time





Row iteration

A query result is read through a forward-only Cursor that a Source opens.
pkg/rowiter turns that cursor into an Iterator, in one of two shapes:

	FlatIterator      one entity per row
	GroupingIterator  one entity per run of adjacent rows sharing a key

The grouping iterator expects the query to order its rows by the grouping key.
Finding the end of a run means reading the first row of the next one,
which the iterator keeps aside for the following Next, so no cursor ever has to step back.

An iterator holds its cursor and the connection behind it until it is drained or closed.
A failed read releases them as well.
Ranging over rowiter.All closes it on every exit path.

	it, err := rowiter.NewGrouping(ctx, conn, query, splitRow, toUser)
	if err != nil {
		return err
	}
	for user, err := range rowiter.All(it) {
		...
	}





Sources

	adapter/postgresql  pgx pool or lib/pq
	adapter/mysql       go-sql-driver/mysql
	adapter/boltdb      bolt buckets, keys read in order
	adapter/memory      registered results, for tests and demos





Preferences

pkg/taste is a data model over a (user, item, preference) table.
Users are streamed with a GroupingIterator, items with a FlatIterator.
The rowstream command exposes it on the command line:

	rowstream users
	rowstream --driver pgx --dsn "$DATABASE_URL" prefs book-42

*/
package rowstream
