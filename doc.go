package wikigraph

// Package wikigraph ingests wiki page dumps into a page and link graph held in
// a key/value store.
//
// Overview
//
// The system is comprised of the following component stages:
//
// 1. Corpus load
//
// Page dumps (XML, optionally bzip2, gzip or xz compressed) are split into
// page records and handed to a bounded pool of workers.  Each record is
// parsed, filtered by namespace, by an optional set of valid page ids and by
// a per-language quota, then saved twice: once as a raw page holding the full
// wikitext, and once as a small local page record feeding the title index.
// The two writes are independent; a failure of one does not undo the other.
//
// 2. Redirect resolution
//
// Every redirect page of a language is mapped from its own id to the id of
// the page its target title names.  Chains are collapsed in place, up to a
// fixed hop budget, so that lookups through the title index land on the final
// article.
//
// 3. Link reconciliation
//
// Links are parsed from wikitext and stored with their destination resolved
// through the title index.  A secondary pagelinks dump may then contribute
// the edges which wikitext did not yield.  The fingerprints of the wikitext
// edges are spilled to sorted runs on disk and merged into one memory-mapped
// file guarded by a bloom filter, which keeps the membership test affordable
// for languages whose edges do not fit in memory.
//
// Storage
//
// Stores are layered over a minimal table/key/value backend interface with
// BoltDB and PostgreSQL implementations.  Per (entity, language) counters are
// persisted alongside the data and mirrored to prometheus.
//
// Running
//
//     wikigraph load enwiki-20240101-pages-articles.xml.bz2
//     wikigraph redirects --lang en
//     wikigraph links --lang en --pagelinks enwiki-20240101-pagelinks.tsv.gz
//     wikigraph stats
