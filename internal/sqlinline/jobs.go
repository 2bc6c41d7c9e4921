// Package sqlinline holds every SQL statement the service executes. Each
// statement starts with a "--sql <uuid>" marker line consumed by
// infra.SQLRunner for statement-level logging.
package sqlinline

const QInsertJob = `--sql 1f4a47c9-dddd-4614-928d-ca58d6a00e60
insert into jobs (
    id, owner_id, kind, status, provider, provider_job_id,
    prompt, options_json, cost, notify_email
) values (
    $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text,
    $7::text, $8::jsonb, $9::bigint, $10::text
);
`

const QSelectJobByID = `--sql 8cacbb25-7ea9-4615-8f29-2b0da3ba6a3f
select id, owner_id, kind, status, provider, provider_job_id,
       prompt, options_json, cost, result_ref, failure_reason,
       payload_digest, notify_email, submitted_at, updated_at
from jobs
where id = $1::uuid;
`

const QSelectJobByProviderRef = `--sql 87b91601-fcc1-4ae1-ba1d-a4904b1c9333
select id, owner_id, kind, status, provider, provider_job_id,
       prompt, options_json, cost, result_ref, failure_reason,
       payload_digest, notify_email, submitted_at, updated_at
from jobs
where provider = $1::text and provider_job_id = $2::text;
`

// QTransitionJob is the single mutation path for callback-driven status
// changes. The where clause enforces both digest idempotence and the
// monotone state machine in one atomic statement; zero affected rows are
// classified afterwards with QClassifyTransition.
const QTransitionJob = `--sql 7dd3fa79-9a89-4a20-925a-041388aabd75
update jobs
set status = $2::text,
    result_ref = case when $2::text = 'succeeded' then $4::text else result_ref end,
    failure_reason = case when $2::text in ('failed', 'expired') then $5::text else failure_reason end,
    payload_digest = $3::text,
    updated_at = now()
where id = $1::uuid
  and payload_digest is distinct from $3::text
  and (
        (status = 'pending' and $2::text in ('processing', 'succeeded', 'failed', 'expired'))
     or (status = 'processing' and $2::text in ('succeeded', 'failed', 'expired'))
  );
`

const QClassifyTransition = `--sql 5db91007-6718-4889-8356-d1ec396752e4
select status, payload_digest
from jobs
where id = $1::uuid;
`

const QExpireStaleJobs = `--sql d4d576cd-9c67-4602-965b-c394f4863448
update jobs
set status = 'expired',
    failure_reason = 'no provider callback within the staleness window',
    updated_at = now()
where status in ('pending', 'processing')
  and updated_at < now() - make_interval(secs => $1::double precision)
returning id, owner_id, kind, status, provider, provider_job_id,
          prompt, options_json, cost, result_ref, failure_reason,
          payload_digest, notify_email, submitted_at, updated_at;
`
