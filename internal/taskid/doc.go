/*
Package taskid provides the stable identity of a constraint instance, the pair
of its UUID and the type name of the concept it is rooted on.

The canonical string form is `RootType:uuid`, e.g.
`StaticDataTable:1b4e28ba-2fa1-11d2-883f-0016d3cca427`.

All maps keyed by constraint identity use ID directly; the string form exists
for logs, plan output and round-tripping through configuration.
*/
package taskid
