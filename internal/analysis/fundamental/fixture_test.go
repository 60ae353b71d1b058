package fundamental

// companyPage is a trimmed Screener.in company page.
const companyPage = `<!DOCTYPE html>
<html><head><title>Acme Ltd share price</title></head>
<body>
<div class="company-ratios">
<ul id="top-ratios">
  <li class="flex flex-space-between"><span class="name">Market Cap</span>
    <span class="nowrap value">₹ <span class="number">12,48,000</span> Cr.</span></li>
  <li class="flex flex-space-between"><span class="name">Current Price</span>
    <span class="nowrap value">₹ <span class="number">1,000</span></span></li>
  <li class="flex flex-space-between"><span class="name">High / Low</span>
    <span class="nowrap value">₹ <span class="number">1,200</span> / <span class="number">800</span></span></li>
  <li class="flex flex-space-between"><span class="name">Stock P/E</span>
    <span class="nowrap value"><span class="number">25.6</span></span></li>
  <li class="flex flex-space-between"><span class="name">Book Value</span>
    <span class="nowrap value">₹ <span class="number">200</span></span></li>
  <li class="flex flex-space-between"><span class="name">Dividend Yield</span>
    <span class="nowrap value"><span class="number">1.20</span> %</span></li>
  <li class="flex flex-space-between"><span class="name">ROCE</span>
    <span class="nowrap value"><span class="number">64.6</span> %</span></li>
  <li class="flex flex-space-between"><span class="name">ROE</span>
    <span class="nowrap value"><span class="number">51.5</span> %</span></li>
  <li class="flex flex-space-between"><span class="name">Face Value</span>
    <span class="nowrap value">₹ <span class="number">1.00</span></span></li>
  <li class="flex flex-space-between"><span class="name">P/E</span>
    <span class="nowrap value"><span class="number">99.9</span></span></li>
</ul>
</div>

<section id="profit-loss">
<h2>Profit &amp; Loss</h2>
<table class="data-table">
  <thead><tr><th></th><th>Mar 2022</th><th>Mar 2023</th><th>Mar 2024</th><th>TTM</th></tr></thead>
  <tbody>
    <tr><td class="text"><button class="button-plain">Sales&nbsp;<span class="blue-icon">+</span></button></td><td>1,000</td><td>1,000</td><td>1,200</td><td>1,300</td></tr>
    <tr><td class="text">Expenses +</td><td>800</td><td>820</td><td>900</td><td>950</td></tr>
    <tr><td class="text">Net Profit +</td><td>50</td><td>0</td><td>10</td><td>12</td></tr>
  </tbody>
</table>
</section>

<section id="balance-sheet">
<h2>Balance Sheet</h2>
<table class="data-table">
  <thead><tr><th></th><th>Mar 2023</th><th>Mar 2024</th></tr></thead>
  <tbody>
    <tr><td class="text">Equity Capital</td><td>366</td><td>362</td></tr>
    <tr><td class="text">Reserves</td><td>90,058</td><td>90,127</td></tr>
    <tr><td class="text">Total Assets</td><td>1,43,651</td><td>1,46,449</td></tr>
  </tbody>
</table>
</section>

<section id="cash-flow">
<h2>Cash Flows</h2>
<table class="data-table">
  <thead><tr><th></th><th>Mar 2023</th><th>Mar 2024</th></tr></thead>
  <tbody>
    <tr><td class="text">Cash from Operating Activity +</td><td>41,965</td><td>44,338</td></tr>
    <tr><td class="text">Cash from Investing Activity +</td><td>-3,528</td><td>5,903</td></tr>
    <tr><td class="text">Net Cash Flow</td><td>-2,127</td><td>1,284</td></tr>
  </tbody>
</table>
</section>

<section id="shareholding">
<h2>Shareholding Pattern</h2>
<table class="data-table">
  <thead><tr><th></th><th>Jun 2024</th><th>Sep 2024</th></tr></thead>
  <tbody>
    <tr><td class="text">Promoters +</td><td>71.77%</td><td>71.77%</td></tr>
    <tr><td class="text">FIIs +</td><td>12.35%</td><td>12.66%</td></tr>
  </tbody>
</table>
</section>

<section id="documents">
<div class="documents flex-column">
  <h3 class="margin-bottom-8">Announcements</h3>
  <ul class="list-links">
    <li><a href="/company/source/1/" target="_blank">Board Meeting - Outcome of board meeting<div class="ink-600 smaller">12 Sep 2024</div></a></li>
    <li><a href="https://www.bseindia.com/xml-data/corpfiling/2.pdf">Press Release</a> <span>10 Sep</span></li>
    <li>No link in this one</li>
    <li><a href="/company/source/3/">Investor Presentation</a></li>
  </ul>
</div>
</section>
</body></html>`
