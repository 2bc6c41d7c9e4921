package sqlinline

const QSelectOrderByNo = `--sql 68d0fb0f-047f-4e67-be31-4785cc056d3e
select order_no, job_id, amount_minor, currency, conversion_reported, created_at, updated_at
from orders
where order_no = $1::text;
`

// QMarkConversionReported flips the flag only when it is still unset; the
// affected row count tells the caller whether this invocation won the race.
const QMarkConversionReported = `--sql d723657d-2b75-4f86-8b6a-dc908ba013fc
update orders
set conversion_reported = true,
    updated_at = now()
where order_no = $1::text
  and conversion_reported = false;
`
