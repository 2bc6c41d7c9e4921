package sqlinline

const QIncrementDailyCounters = `--sql d1ef0fde-39ca-42fe-b8f0-7d5ae6519302
insert into analytics_daily (
    day, submissions, callbacks_applied, callbacks_replayed, callbacks_conflict, conversions
) values (
    $1::date, $2::int, $3::int, $4::int, $5::int, $6::int
) on conflict (day) do update set
    submissions = analytics_daily.submissions + excluded.submissions,
    callbacks_applied = analytics_daily.callbacks_applied + excluded.callbacks_applied,
    callbacks_replayed = analytics_daily.callbacks_replayed + excluded.callbacks_replayed,
    callbacks_conflict = analytics_daily.callbacks_conflict + excluded.callbacks_conflict,
    conversions = analytics_daily.conversions + excluded.conversions,
    updated_at = now();
`
