package sqlinline

// QAcquireOwnerLock serializes writers per owner for the rest of the
// transaction. It must run as its own statement before QDebitCredits: a
// statement that waits on the lock after taking its snapshot would read a
// balance that misses the concurrent holder's committed debit.
const QAcquireOwnerLock = `--sql 0c9f11fb-3a44-4f5e-9a0c-4f4dd1a9f58e
select pg_advisory_xact_lock(hashtext($1::text));
`

// QDebitCredits inserts the debit only when the derived balance stays
// non-negative. The returned id is absent when the owner could not afford
// the debit. Callers hold the owner advisory lock in the same transaction.
const QDebitCredits = `--sql 59767fa4-dddb-488c-8aff-c05b51b85fe8
with balance as (
    select coalesce(sum(delta), 0) as total
    from credit_entries
    where owner_id = $2::text
)
insert into credit_entries (id, owner_id, delta, reason, related_job_id)
select $1::uuid, $2::text, -($3::bigint), 'submission_debit', $4::uuid
from balance
where balance.total - $3::bigint >= 0
returning id;
`

// QAppendLedgerEntry inserts refund, settlement and top-up movements. The
// partial unique index on (related_job_id, reason) absorbs duplicates, so
// re-running a refund for the same job is a no-op.
const QAppendLedgerEntry = `--sql 7d55984c-7fbf-4894-8df4-563f33508824
insert into credit_entries (id, owner_id, delta, reason, related_job_id)
values ($1::uuid, $2::text, $3::bigint, $4::text, $5::uuid)
on conflict (related_job_id, reason) where related_job_id is not null
do nothing;
`

const QSelectBalance = `--sql 665ff3c5-2faf-4495-90eb-6419f1459d91
select coalesce(sum(delta), 0)
from credit_entries
where owner_id = $1::text;
`

const QSelectSubmissionDebit = `--sql 552f6a19-3747-46bc-a374-08ea63737b62
select id, owner_id, delta, reason, related_job_id, created_at
from credit_entries
where related_job_id = $1::uuid and reason = 'submission_debit';
`

const QListLedgerEntries = `--sql 343d1754-50d6-481f-bc51-553005a65d7b
select id, owner_id, delta, reason, related_job_id, created_at
from credit_entries
where owner_id = $1::text
order by created_at desc
limit $2::int;
`
