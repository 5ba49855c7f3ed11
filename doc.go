/*
Package cfddns keeps the A and AAAA records of a Cloudflare-hosted name pointed at
the caller's current public addresses.

Usage will always start with [New],
which returns a [Syncer] for one fully-qualified domain name.
Each call to [Syncer.Run] is a fresh reconciliation:
the zone is looked up, the existing A and AAAA record ids are discovered,
the public addresses are fetched from the Cloudflare trace endpoint,
and each record whose address family is known is updated in place.

Records are never created or deleted.
A family with no current address or no existing record is skipped.
*/
package cfddns
